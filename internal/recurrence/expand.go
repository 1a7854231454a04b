package recurrence

import (
	"fmt"

	"github.com/teambition/rrule-go"

	"github.com/dukerupert/daywich/internal/model"
)

const (
	// DefaultHorizonDays bounds a series without an end date: it stops one
	// year after its first date (inclusive).
	DefaultHorizonDays = 365
	// DefaultMaxOccurrences caps every expansion regardless of end date.
	DefaultMaxOccurrences = 1000
)

// Options bounds expansion. Zero values use the defaults.
type Options struct {
	HorizonDays    int
	MaxOccurrences int
}

func (o Options) normalize() Options {
	if o.HorizonDays <= 0 {
		o.HorizonDays = DefaultHorizonDays
	}
	if o.MaxOccurrences <= 0 {
		o.MaxOccurrences = DefaultMaxOccurrences
	}
	return o
}

// Generate expands a recurring template into one event per occurrence, in
// ascending date order, starting at the template's date and ending at
// repeat.endDate inclusive. A none repeat yields the template unchanged.
//
// Dates that do not exist in a target month are skipped rather than clamped:
// a monthly series on the 31st only lands in 31-day months, and a yearly
// series on Feb 29 only in leap years.
//
// Instances copy every field of the template except date. repeat.id is left
// for the store to assign.
func Generate(template model.Event, opts Options) ([]model.Event, error) {
	if template.Repeat.Type == model.RepeatNone || template.Repeat.Type == "" {
		return []model.Event{template}, nil
	}
	opts = opts.normalize()

	rule, err := FromRepeat(template.Repeat)
	if err != nil {
		return nil, err
	}

	start, err := model.ParseDate(template.Date)
	if err != nil {
		return nil, err
	}

	until := start.AddDate(0, 0, opts.HorizonDays)
	if rule.Until != nil {
		until = *rule.Until
	}
	if until.Before(start) {
		return []model.Event{}, nil
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:     rule.Freq.rrule(),
		Interval: rule.Interval,
		Dtstart:  start,
		Until:    until,
	})
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}

	out := make([]model.Event, 0)
	next := r.Iterator()
	for len(out) < opts.MaxOccurrences {
		t, ok := next()
		if !ok {
			break
		}
		instance := template
		instance.ID = ""
		instance.Date = model.FormatDate(t)
		out = append(out, instance)
	}

	return out, nil
}
