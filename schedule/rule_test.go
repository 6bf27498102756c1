package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ScheduledShot/failure"
)

func TestParseRule(t *testing.T) {
	r := ParseRule(Entry{Time: "07:05", Days: []string{"H", "Sze", "fri", "SUNDAY"}})
	require.NoError(t, r.Validate())
	assert.Equal(t, 7, r.Hour)
	assert.Equal(t, 5, r.Minute)
	assert.True(t, r.Enabled)
	assert.Equal(t, NewDaySet(time.Monday, time.Wednesday, time.Friday, time.Sunday), r.Days)
	assert.Equal(t, "07:05 sun,mon,wed,fri", r.String())
}

func TestParseRuleInvalid(t *testing.T) {
	for _, e := range []Entry{
		{Time: "", Days: []string{"mon"}},
		{Time: "24:00", Days: []string{"mon"}},
		{Time: "12:60", Days: []string{"mon"}},
		{Time: "noon", Days: []string{"mon"}},
		{Time: "12:00"},
	} {
		err := ParseRule(e).Validate()
		assert.ErrorIs(t, err, failure.ErrInvalidConfiguration, "%+v", e)
	}
}

func TestDaySet(t *testing.T) {
	d := NewDaySet(time.Saturday, time.Saturday, time.Weekday(9))
	assert.True(t, d.Has(time.Saturday))
	assert.False(t, d.Has(time.Sunday))
	assert.False(t, d.Empty())
	assert.True(t, DaySet(0).Empty())
}

func TestRuleSetIsACopy(t *testing.T) {
	rules := []Rule{NewRule(1, 2, time.Monday)}
	set := NewRuleSet(rules...)
	rules[0].Hour = 5
	assert.Equal(t, 1, set.At(0).Hour)

	out := set.Rules()
	out[0].Hour = 6
	assert.Equal(t, 1, set.At(0).Hour)
}

func TestDedupKeyTruncatesToMinute(t *testing.T) {
	a := NewDedupKey(3, time.Date(2025, 3, 4, 9, 0, 1, 0, time.UTC))
	b := NewDedupKey(3, time.Date(2025, 3, 4, 9, 0, 59, 999, time.UTC))
	c := NewDedupKey(3, time.Date(2025, 3, 4, 9, 1, 0, 0, time.UTC))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, NewDedupKey(4, time.Date(2025, 3, 4, 9, 0, 1, 0, time.UTC)))
}
