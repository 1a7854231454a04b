// Package search filters event lists by a free-text term and by the range of
// the calendar view being shown.
package search

import (
	"strings"
	"time"

	"github.com/dukerupert/daywich/internal/model"
)

type View string

const (
	ViewAll   View = ""
	ViewMonth View = "month"
	ViewWeek  View = "week"
)

// ParseView accepts "month", "week" or an empty string.
func ParseView(s string) (View, bool) {
	switch View(s) {
	case ViewAll, ViewMonth, ViewWeek:
		return View(s), true
	}
	return ViewAll, false
}

// Matches reports whether term occurs in the title, description or location
// of e, ignoring case. An empty term matches everything.
func Matches(e model.Event, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Title), term) ||
		strings.Contains(strings.ToLower(e.Description), term) ||
		strings.Contains(strings.ToLower(e.Location), term)
}

// WeekRange returns the Sunday and Saturday of the week containing day.
func WeekRange(day time.Time) (time.Time, time.Time) {
	d := truncate(day)
	start := d.AddDate(0, 0, -int(d.Weekday()))
	return start, start.AddDate(0, 0, 6)
}

// MonthRange returns the first and last day of the month containing day.
func MonthRange(day time.Time) (time.Time, time.Time) {
	d := truncate(day)
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
	return start, start.AddDate(0, 1, -1)
}

// Filter keeps the events matching term that fall inside the view around
// current. Order is preserved. Events with an unparsable date are dropped
// when a view range applies.
func Filter(events []model.Event, term string, view View, current time.Time) []model.Event {
	var first, last time.Time
	switch view {
	case ViewMonth:
		first, last = MonthRange(current)
	case ViewWeek:
		first, last = WeekRange(current)
	}

	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if !Matches(e, term) {
			continue
		}
		if view != ViewAll {
			d, err := model.ParseDate(e.Date)
			if err != nil {
				continue
			}
			if d.Before(first) || d.After(last) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// truncate drops the clock part of t and moves it to UTC, matching the
// midnight UTC values produced by model.ParseDate.
func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
