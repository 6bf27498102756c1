package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ScheduledShot/failure"
)

// DaySet は曜日の集合です（time.Weekday をビット位置とするビットマスク）。
type DaySet uint8

// NewDaySet は指定した曜日からなる集合を返します。
func NewDaySet(days ...time.Weekday) DaySet {
	var d DaySet
	for _, w := range days {
		if w >= time.Sunday && w <= time.Saturday {
			d |= 1 << uint(w)
		}
	}
	return d
}

// Has は w が集合に含まれるか返します。
func (d DaySet) Has(w time.Weekday) bool {
	return d&(1<<uint(w)) != 0
}

func (d DaySet) Empty() bool { return d == 0 }

func (d DaySet) String() string {
	var parts []string
	for w := time.Sunday; w <= time.Saturday; w++ {
		if d.Has(w) {
			parts = append(parts, dayNames[w])
		}
	}
	return strings.Join(parts, ",")
}

var dayNames = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// 旧設定ファイルのハンガリー語略称（H=月 … V=日）も受け付ける。
var dayTags = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday, "v": time.Sunday,
	"mon": time.Monday, "monday": time.Monday, "h": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday, "k": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday, "sze": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday, "cs": time.Thursday,
	"fri": time.Friday, "friday": time.Friday, "p": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday, "szo": time.Saturday,
}

// ParseDay は曜日タグを time.Weekday に変換します。大文字小文字は区別しません。
func ParseDay(tag string) (time.Weekday, bool) {
	w, ok := dayTags[strings.ToLower(strings.TrimSpace(tag))]
	return w, ok
}

// Entry は設定ファイル上のスケジュール規則（未検証）です。
type Entry struct {
	Time    string   `yaml:"time" json:"time"`
	Days    []string `yaml:"days" json:"days"`
	Enabled *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// Rule は1件のスケジュール規則です。公開後は変更しません。
type Rule struct {
	Hour    int
	Minute  int
	Days    DaySet
	Enabled bool

	// 設定から読み込んだ時点で不正だった場合の理由
	invalid error
}

// NewRule は有効な規則を作成します。
func NewRule(hour, minute int, days ...time.Weekday) Rule {
	return Rule{Hour: hour, Minute: minute, Days: NewDaySet(days...), Enabled: true}
}

// ParseRule は Entry から規則を作ります。不正な Entry でも規則は返し、
// Validate がその理由を返します（設定内の並び順を保つため）。
func ParseRule(e Entry) Rule {
	r := Rule{Enabled: e.Enabled == nil || *e.Enabled}
	for _, tag := range e.Days {
		if w, ok := ParseDay(tag); ok {
			r.Days |= NewDaySet(w)
		}
	}
	h, m, err := parseClock(e.Time)
	if err != nil {
		r.invalid = err
		return r
	}
	r.Hour, r.Minute = h, m
	return r
}

func parseClock(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, fmt.Errorf("%w: time is empty", failure.ErrInvalidConfiguration)
	}
	hs, ms, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: time %q is not HH:MM", failure.ErrInvalidConfiguration, s)
	}
	h, err1 := strconv.Atoi(hs)
	m, err2 := strconv.Atoi(ms)
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w: time %q is not HH:MM", failure.ErrInvalidConfiguration, s)
	}
	return h, m, nil
}

// Validate は規則が発火可能か検査します。
func (r Rule) Validate() error {
	if r.invalid != nil {
		return r.invalid
	}
	if r.Hour < 0 || r.Hour > 23 || r.Minute < 0 || r.Minute > 59 {
		return fmt.Errorf("%w: time %02d:%02d out of range", failure.ErrInvalidConfiguration, r.Hour, r.Minute)
	}
	if r.Days.Empty() {
		return fmt.Errorf("%w: day set is empty", failure.ErrInvalidConfiguration)
	}
	return nil
}

// Matches は now（分単位）が規則の時刻と曜日に一致するか返します。
// 不正な規則と無効化された規則は常に false です。
func (r Rule) Matches(now time.Time) bool {
	if !r.Enabled || r.Validate() != nil {
		return false
	}
	return now.Hour() == r.Hour && now.Minute() == r.Minute && r.Days.Has(now.Weekday())
}

func (r Rule) String() string {
	if r.invalid != nil {
		return "invalid"
	}
	return fmt.Sprintf("%02d:%02d %s", r.Hour, r.Minute, r.Days)
}

// RuleSet は規則の順序付き集合です。再読み込み時は丸ごと置き換えます。
type RuleSet struct {
	rules []Rule
}

// NewRuleSet は rules のコピーから RuleSet を作ります。
func NewRuleSet(rules ...Rule) RuleSet {
	return RuleSet{rules: append([]Rule(nil), rules...)}
}

// ParseRuleSet は設定の Entry 列から RuleSet を作ります。
func ParseRuleSet(entries []Entry) RuleSet {
	rules := make([]Rule, 0, len(entries))
	for _, e := range entries {
		rules = append(rules, ParseRule(e))
	}
	return RuleSet{rules: rules}
}

func (s RuleSet) Len() int { return len(s.rules) }

func (s RuleSet) At(i int) Rule { return s.rules[i] }

// Rules は規則のコピーを返します。
func (s RuleSet) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// DedupKey は（規則番号, 分単位の時刻）の組です。同じキーでは一度しか発火しません。
type DedupKey struct {
	Rule int
	Slot string
}

// NewDedupKey は now を分単位に切り捨てたキーを返します。
func NewDedupKey(rule int, now time.Time) DedupKey {
	return DedupKey{Rule: rule, Slot: now.Format("200601021504")}
}
