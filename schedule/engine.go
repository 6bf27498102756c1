// Package schedule は時刻規則に従ってキャプチャを起動するトリガーエンジンです。
//
// エンジンは単一のワーカーで一定間隔（既定 60 秒）ごとに壁時計を読み、一致した
// 規則の Action を同期的に実行します。同じ規則は同じ分の間に一度しか発火しません。
//
// 精度の限界: 判定は分単位で、ティック間隔も 60 秒のため、ティックが分の境界を
// 丸ごと跨いで遅れた場合（スリープ復帰や長時間のキャプチャなど）その分の発火は
// 失われます。取りこぼしを推測で補うことはしません。
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval はティック間隔の既定値です。
const DefaultInterval = 60 * time.Second

// Action は規則が発火したときに呼ばれます。
type Action interface {
	Fire(ctx context.Context, index int, rule Rule, at time.Time) error
}

// ActionFunc は関数を Action として扱うためのアダプタです。
type ActionFunc func(ctx context.Context, index int, rule Rule, at time.Time) error

func (f ActionFunc) Fire(ctx context.Context, index int, rule Rule, at time.Time) error {
	return f(ctx, index, rule, at)
}

// Options はエンジンの設定です。
type Options struct {
	Interval time.Duration
	Clock    func() time.Time
	Logger   *slog.Logger
}

// firedRetention は発火済みキーを保持する期間です。夏時間の終了や時計の巻き戻しで
// 同じ分がもう一度来ても、このあいだは同じキーで発火しません。
const firedRetention = 25 * time.Hour

// snapshot は公開中の規則集合と発火済みキー（値は発火した時刻）です。Reload で丸ごと差し替えます。
// fired はワーカーだけが読み書きします。
type snapshot struct {
	rules RuleSet
	fired map[DedupKey]time.Time
}

// Engine はスケジュールのトリガーエンジンです。
type Engine struct {
	action   Action
	interval time.Duration
	clock    func() time.Time
	logger   *slog.Logger

	state atomic.Pointer[snapshot]

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine はエンジンを作成します。
func NewEngine(action Action, opts Options) (*Engine, error) {
	if action == nil {
		return nil, fmt.Errorf("schedule: action must not be nil")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{action: action, interval: interval, clock: clock, logger: logger}, nil
}

// Start は規則集合を公開してワーカーを起動します。
// 実行中に呼ばれた場合は警告を出して Reload と同じ動作をします。
func (e *Engine) Start(ctx context.Context, rules RuleSet) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.aliveLocked() {
		e.logger.Warn("スケジューラは既に起動しています。規則を再読み込みします")
		e.publish(rules)
		return
	}
	e.publish(rules)

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(ctx, e.done)
	e.logger.Info("スケジューラを起動しました", "rules", rules.Len(), "interval", e.interval)
}

// Reload は規則集合を差し替え、発火済みキーを同時に破棄します。
func (e *Engine) Reload(rules RuleSet) {
	e.mu.Lock()
	running := e.aliveLocked()
	e.mu.Unlock()
	if !running {
		e.logger.Warn("スケジューラは起動していません。次回の起動で使う規則だけを更新します")
	}
	e.publish(rules)
	e.logger.Info("規則を再読み込みしました", "rules", rules.Len())
}

// Stop は新しいティックを止め、ワーカーの終了を待ちます。
// 実行中のキャプチャは中断しません。
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done == nil {
		return
	}
	e.cancel()
	<-e.done
	e.cancel, e.done = nil, nil
	e.logger.Info("スケジューラを停止しました")
}

// Running はワーカーが動作中か返します。
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aliveLocked()
}

// aliveLocked はワーカーが動作中か返します。親の ctx が終了してワーカーだけが
// 先に抜けていた場合は後始末をして false を返します。e.mu を保持して呼びます。
func (e *Engine) aliveLocked() bool {
	if e.done == nil {
		return false
	}
	select {
	case <-e.done:
		e.cancel()
		e.cancel, e.done = nil, nil
		return false
	default:
		return true
	}
}

func (e *Engine) publish(rules RuleSet) {
	for i, r := range rules.rules {
		if err := r.Validate(); err != nil {
			e.logger.Warn("不完全なスケジュール規則をスキップします", "rule", i, "error", err)
		}
	}
	e.state.Store(&snapshot{rules: rules, fired: make(map[DedupKey]time.Time)})
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	// Stop で実行中のキャプチャを中断しないよう、Action にはキャンセルを伝えない。
	actionCtx := context.WithoutCancel(ctx)

	e.evaluate(actionCtx, e.clock())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// ticker の時刻ではなく壁時計を読む（スリープ中は ticker が止まるため）
			e.evaluate(actionCtx, e.clock())
		}
	}
}

// evaluate は now に一致する規則を発火させ、発火したキーを返します。
func (e *Engine) evaluate(ctx context.Context, now time.Time) []DedupKey {
	snap := e.state.Load()
	if snap == nil {
		return nil
	}

	// 経過時間で古いキーだけを捨てる。時計が戻った場合は何も捨てない。
	for k, firedAt := range snap.fired {
		if now.Sub(firedAt) > firedRetention {
			delete(snap.fired, k)
		}
	}

	var fired []DedupKey
	for i, r := range snap.rules.rules {
		if !r.Matches(now) {
			continue
		}
		key := NewDedupKey(i, now)
		if _, ok := snap.fired[key]; ok {
			continue
		}
		snap.fired[key] = now
		fired = append(fired, key)
		e.fire(ctx, i, r, now)
	}
	return fired
}

func (e *Engine) fire(ctx context.Context, index int, rule Rule, now time.Time) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("スケジュール実行中にパニックが発生しました", "rule", index, "panic", p)
		}
	}()
	e.logger.Info("スケジュールを実行します", "rule", index, "at", rule.String())
	if err := e.action.Fire(ctx, index, rule, now); err != nil {
		e.logger.Error("スケジュール実行に失敗しました", "rule", index, "error", err)
	}
}
