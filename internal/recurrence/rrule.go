package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/dukerupert/daywich/internal/model"
)

type Freq int

const (
	Daily Freq = iota
	Weekly
	Monthly
	Yearly
)

var freqNames = map[Freq]string{
	Daily:   "DAILY",
	Weekly:  "WEEKLY",
	Monthly: "MONTHLY",
	Yearly:  "YEARLY",
}

var freqFromType = map[model.RepeatType]Freq{
	model.RepeatDaily:   Daily,
	model.RepeatWeekly:  Weekly,
	model.RepeatMonthly: Monthly,
	model.RepeatYearly:  Yearly,
}

var freqLabel = map[Freq]string{
	Daily:   "일",
	Weekly:  "주",
	Monthly: "월",
	Yearly:  "년",
}

func (f Freq) rrule() rrule.Frequency {
	switch f {
	case Weekly:
		return rrule.WEEKLY
	case Monthly:
		return rrule.MONTHLY
	case Yearly:
		return rrule.YEARLY
	}
	return rrule.DAILY
}

type Rule struct {
	Freq     Freq
	Interval int        // default 1; 2 = biweekly when Freq=Weekly
	Until    *time.Time // inclusive last date (nil = no limit)
}

// FromRepeat converts a repeat descriptor into a Rule. A none repeat has no
// rule and returns an error.
func FromRepeat(r model.Repeat) (Rule, error) {
	f, ok := freqFromType[r.Type]
	if !ok {
		return Rule{}, fmt.Errorf("unsupported repeat type: %q", r.Type)
	}

	rule := Rule{Freq: f, Interval: r.Interval}
	if rule.Interval < 1 {
		rule.Interval = 1
	}

	if r.EndDate != "" {
		until, err := model.ParseDate(r.EndDate)
		if err != nil {
			return Rule{}, fmt.Errorf("repeat end date: %w", err)
		}
		rule.Until = &until
	}

	return rule, nil
}

// String serializes the rule to an RRULE value.
func (r Rule) String() string {
	var parts []string
	parts = append(parts, "FREQ="+freqNames[r.Freq])

	if r.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", r.Interval))
	}

	if r.Until != nil {
		parts = append(parts, "UNTIL="+r.Until.Format("20060102T150405Z"))
	}

	return strings.Join(parts, ";")
}

// Describe returns the label shown next to recurring events,
// e.g. "반복: 2주마다 (종료: 2025-11-15)".
func Describe(r model.Repeat) string {
	rule, err := FromRepeat(r)
	if err != nil {
		return ""
	}
	s := fmt.Sprintf("반복: %d%s마다", rule.Interval, freqLabel[rule.Freq])
	if r.EndDate != "" {
		s += fmt.Sprintf(" (종료: %s)", r.EndDate)
	}
	return s
}
