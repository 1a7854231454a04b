package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned by event stores when a record or series does not exist.
var ErrNotFound = errors.New("not found")

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

type RepeatType string

const (
	RepeatNone    RepeatType = "none"
	RepeatDaily   RepeatType = "daily"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
	RepeatYearly  RepeatType = "yearly"
)

var validRepeatTypes = map[RepeatType]bool{
	RepeatNone:    true,
	RepeatDaily:   true,
	RepeatWeekly:  true,
	RepeatMonthly: true,
	RepeatYearly:  true,
}

// Valid reports whether t is one of the known repeat types.
func (t RepeatType) Valid() bool {
	return validRepeatTypes[t]
}

// Categories offered by the event form. Stores accept any value.
var Categories = []string{"업무", "개인", "가족", "기타"}

// NotificationOptions are the lead times (minutes) offered by the event form.
var NotificationOptions = []int{1, 10, 60, 120, 1440}

const DefaultNotificationTime = 10

type Repeat struct {
	Type     RepeatType `json:"type"`
	Interval int        `json:"interval"`
	EndDate  string     `json:"endDate,omitempty"`
	ID       string     `json:"id,omitempty"`
}

// NoRepeat is the descriptor of a standalone event.
func NoRepeat() Repeat {
	return Repeat{Type: RepeatNone, Interval: 0}
}

// Event is also used as the creation payload (EventForm); ID is empty until
// the store assigns one.
type Event struct {
	ID               string `json:"id,omitempty"`
	Title            string `json:"title"`
	Date             string `json:"date"`
	StartTime        string `json:"startTime"`
	EndTime          string `json:"endTime"`
	Description      string `json:"description"`
	Location         string `json:"location"`
	Category         string `json:"category"`
	Repeat           Repeat `json:"repeat"`
	NotificationTime int    `json:"notificationTime"`
}

// IsRecurring reports whether edits and deletes of e should ask for
// single-instance or whole-series scope. An interval of 0 is not recurring
// even when the type is not none.
func IsRecurring(e Event) bool {
	return e.Repeat.Type != RepeatNone && e.Repeat.Type != "" && e.Repeat.Interval > 0
}

// Demote detaches e from its series: the result is a standalone event that
// keeps its own ID.
func Demote(e Event) Event {
	e.Repeat = NoRepeat()
	return e
}

// SeriesPatch carries the fields of a whole-series update. Nil fields are left
// untouched; the date of each instance is never changed.
type SeriesPatch struct {
	Title            *string      `json:"title,omitempty"`
	Description      *string      `json:"description,omitempty"`
	Location         *string      `json:"location,omitempty"`
	Category         *string      `json:"category,omitempty"`
	NotificationTime *int         `json:"notificationTime,omitempty"`
	StartTime        *string      `json:"startTime,omitempty"`
	EndTime          *string      `json:"endTime,omitempty"`
	Repeat           *RepeatPatch `json:"repeat,omitempty"`
}

type RepeatPatch struct {
	Type     *RepeatType `json:"type,omitempty"`
	Interval *int        `json:"interval,omitempty"`
	EndDate  *string     `json:"endDate,omitempty"`
}

// PatchFrom builds a patch carrying every non-date field of e.
func PatchFrom(e Event) SeriesPatch {
	title, desc, loc, cat := e.Title, e.Description, e.Location, e.Category
	start, end := e.StartTime, e.EndTime
	notif := e.NotificationTime
	rt, ri, re := e.Repeat.Type, e.Repeat.Interval, e.Repeat.EndDate
	return SeriesPatch{
		Title:            &title,
		Description:      &desc,
		Location:         &loc,
		Category:         &cat,
		NotificationTime: &notif,
		StartTime:        &start,
		EndTime:          &end,
		Repeat:           &RepeatPatch{Type: &rt, Interval: &ri, EndDate: &re},
	}
}

// Apply returns e with the patch applied. ID, Date and Repeat.ID are kept.
func (p SeriesPatch) Apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.NotificationTime != nil {
		e.NotificationTime = *p.NotificationTime
	}
	if p.StartTime != nil {
		e.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		e.EndTime = *p.EndTime
	}
	if p.Repeat != nil {
		if p.Repeat.Type != nil {
			e.Repeat.Type = *p.Repeat.Type
		}
		if p.Repeat.Interval != nil {
			e.Repeat.Interval = *p.Repeat.Interval
		}
		if p.Repeat.EndDate != nil {
			e.Repeat.EndDate = *p.Repeat.EndDate
		}
	}
	return e
}

// ParseDate parses a YYYY-MM-DD wall-clock date at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ClockMinutes converts an HH:MM wall-clock time to minutes since midnight.
func ClockMinutes(s string) (int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return hour*60 + minute, nil
}

// StartAt returns the start of e as a time in loc.
func (e Event) StartAt(loc *time.Location) (time.Time, error) {
	return at(e.Date, e.StartTime, loc)
}

// EndAt returns the end of e as a time in loc.
func (e Event) EndAt(loc *time.Location) (time.Time, error) {
	return at(e.Date, e.EndTime, loc)
}

func at(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	mins, err := ClockMinutes(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), mins/60, mins%60, 0, 0, loc), nil
}
