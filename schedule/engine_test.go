package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ScheduledShot/failure"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	mu    sync.Mutex
	calls []int
}

func (r *recorder) Fire(_ context.Context, index int, _ Rule, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, index)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestEngine(t *testing.T, action Action) *Engine {
	t.Helper()
	e, err := NewEngine(action, Options{Logger: discardLogger()})
	require.NoError(t, err)
	return e
}

// 2025-01-01 は水曜日
func at(day, hour, minute, sec int) time.Time {
	return time.Date(2025, 1, day, hour, minute, sec, 0, time.Local)
}

func TestNewEngineRequiresAction(t *testing.T) {
	_, err := NewEngine(nil, Options{})
	assert.Error(t, err)
}

func TestInvalidRulesNeverFire(t *testing.T) {
	no := false
	rules := ParseRuleSet([]Entry{
		{Time: "", Days: []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}},
		{Time: "09:00", Days: nil},
		{Time: "09:00", Days: []string{"nope"}},
		{Time: "9", Days: []string{"mon"}},
		{Time: "09:00", Days: []string{"wed"}, Enabled: &no},
	})
	rec := &recorder{}
	e := newTestEngine(t, rec)
	e.publish(rules)

	start := at(6, 0, 0, 0)
	for m := 0; m < 7*24*60; m++ {
		e.evaluate(context.Background(), start.Add(time.Duration(m)*time.Minute))
	}
	assert.Zero(t, rec.count())

	assert.False(t, NewRule(9, 0).Matches(at(1, 9, 0, 0)), "empty day set")
}

func TestRuleFiresAtMostOncePerMinute(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(t, rec)
	e.publish(NewRuleSet(NewRule(9, 0, time.Wednesday)))

	for _, sec := range []int{0, 1, 30, 59, 59} {
		e.evaluate(context.Background(), at(1, 9, 0, sec))
	}
	assert.Equal(t, 1, rec.count())
}

func TestWeekdayMatchingIsExact(t *testing.T) {
	r := NewRule(12, 30, time.Monday)
	for day := 1; day <= 7; day++ {
		now := at(day, 12, 30, 0)
		assert.Equal(t, now.Weekday() == time.Monday, r.Matches(now), now.Weekday().String())
	}
}

func TestEndToEndMondayWednesday(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(t, rec)
	e.publish(ParseRuleSet([]Entry{{Time: "09:00", Days: []string{"Mon", "Wed"}}}))
	ctx := context.Background()

	first := e.evaluate(ctx, at(1, 9, 0, 5))
	require.Len(t, first, 1)
	assert.Empty(t, e.evaluate(ctx, at(1, 9, 0, 50)))
	assert.Empty(t, e.evaluate(ctx, at(1, 9, 1, 0)))

	monday := e.evaluate(ctx, at(6, 9, 0, 0))
	require.Len(t, monday, 1)
	assert.NotEqual(t, first[0], monday[0])
	assert.Equal(t, 2, rec.count())
}

func TestReloadClearsFiredKeys(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(t, rec)
	rules := NewRuleSet(NewRule(9, 0, time.Wednesday))
	e.publish(rules)
	ctx := context.Background()

	e.evaluate(ctx, at(1, 9, 0, 0))
	e.Reload(rules)
	e.evaluate(ctx, at(1, 9, 0, 30))
	assert.Equal(t, 2, rec.count())
}

func TestFailingRuleDoesNotStopOthers(t *testing.T) {
	var fired []int
	action := ActionFunc(func(_ context.Context, index int, _ Rule, _ time.Time) error {
		fired = append(fired, index)
		switch index {
		case 0:
			panic("render exploded")
		case 1:
			return failure.ErrTargetNotFound
		}
		return nil
	})
	e := newTestEngine(t, action)
	e.publish(NewRuleSet(
		NewRule(9, 0, time.Wednesday),
		NewRule(9, 0, time.Wednesday),
		NewRule(9, 0, time.Wednesday),
	))

	keys := e.evaluate(context.Background(), at(1, 9, 0, 0))
	assert.Len(t, keys, 3)
	assert.Equal(t, []int{0, 1, 2}, fired)
}

func TestStartStop(t *testing.T) {
	var n atomic.Int32
	block := make(chan struct{})
	action := ActionFunc(func(ctx context.Context, _ int, _ Rule, _ time.Time) error {
		n.Add(1)
		<-block
		return ctx.Err()
	})
	e, err := NewEngine(action, Options{
		Interval: 5 * time.Millisecond,
		Clock:    func() time.Time { return at(1, 9, 0, 0) },
		Logger:   discardLogger(),
	})
	require.NoError(t, err)

	e.Start(context.Background(), NewRuleSet(NewRule(9, 0, time.Wednesday)))
	require.True(t, e.Running())
	require.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		e.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while a capture was still in flight")
	case <-time.After(20 * time.Millisecond):
	}
	close(block)
	<-stopped

	assert.False(t, e.Running())
	assert.Equal(t, int32(1), n.Load())
}

func TestStartTwiceReloads(t *testing.T) {
	rec := &recorder{}
	e, err := NewEngine(rec, Options{
		Interval: time.Hour,
		Clock:    func() time.Time { return at(1, 9, 0, 0) },
		Logger:   discardLogger(),
	})
	require.NoError(t, err)
	defer e.Stop()

	e.Start(context.Background(), NewRuleSet())
	e.Start(context.Background(), NewRuleSet(NewRule(10, 0, time.Wednesday)))
	assert.Equal(t, 1, e.state.Load().rules.Len())
}

func TestActionErrorIsNotFatal(t *testing.T) {
	calls := 0
	e := newTestEngine(t, ActionFunc(func(context.Context, int, Rule, time.Time) error {
		calls++
		return errors.New("disk full")
	}))
	e.publish(NewRuleSet(NewRule(9, 0, time.Wednesday)))
	e.evaluate(context.Background(), at(1, 9, 0, 0))
	e.evaluate(context.Background(), at(8, 9, 0, 0))
	assert.Equal(t, 2, calls)
}

func TestFallBackHourDoesNotRefire(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	rec := &recorder{}
	e := newTestEngine(t, rec)
	e.publish(NewRuleSet(NewRule(1, 30, time.Sunday)))

	// 2025-11-02 は日曜日で、01:00〜02:00 が2回ある
	edt := time.Date(2025, 11, 2, 5, 30, 0, 0, time.UTC).In(ny)
	est := time.Date(2025, 11, 2, 6, 30, 0, 0, time.UTC).In(ny)
	require.Equal(t, edt.Format("15:04"), est.Format("15:04"))

	assert.Len(t, e.evaluate(context.Background(), edt), 1)
	assert.Empty(t, e.evaluate(context.Background(), edt.Add(time.Minute)))
	assert.Empty(t, e.evaluate(context.Background(), est))
	assert.Equal(t, 1, rec.count())
}

func TestClockSteppingBackDoesNotRefire(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(t, rec)
	e.publish(NewRuleSet(NewRule(9, 0, time.Wednesday)))

	e.evaluate(context.Background(), at(1, 9, 0, 10))
	e.evaluate(context.Background(), at(1, 9, 5, 0))
	e.evaluate(context.Background(), at(1, 9, 0, 40))
	assert.Equal(t, 1, rec.count())

	// 翌週の同じ時刻は別のキー
	e.evaluate(context.Background(), at(8, 9, 0, 0))
	assert.Equal(t, 2, rec.count())
}

func TestFiredKeysExpire(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	e.publish(NewRuleSet(NewRule(9, 0, time.Wednesday)))

	e.evaluate(context.Background(), at(1, 9, 0, 0))
	require.Len(t, e.state.Load().fired, 1)
	e.evaluate(context.Background(), at(2, 10, 1, 0))
	assert.Empty(t, e.state.Load().fired)
}

func TestRestartAfterParentContextEnds(t *testing.T) {
	rec := &recorder{}
	e, err := NewEngine(rec, Options{
		Interval: time.Hour,
		Clock:    func() time.Time { return at(1, 9, 0, 0) },
		Logger:   discardLogger(),
	})
	require.NoError(t, err)
	rules := NewRuleSet(NewRule(9, 0, time.Wednesday))

	ctx, cancel := context.WithCancel(context.Background())
	e.Start(ctx, rules)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.Eventually(t, func() bool { return !e.Running() }, time.Second, time.Millisecond)

	e.Start(context.Background(), rules)
	defer e.Stop()
	assert.True(t, e.Running())
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, time.Millisecond)
}
