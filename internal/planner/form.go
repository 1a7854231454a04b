package planner

import (
	"strings"

	"github.com/dukerupert/daywich/internal/model"
)

// Form is the draft behind the create/edit form.
type Form struct {
	Title            string
	Date             string
	StartTime        string
	EndTime          string
	Description      string
	Location         string
	Category         string
	IsRepeating      bool
	RepeatType       model.RepeatType
	RepeatInterval   int
	RepeatEndDate    string
	NotificationTime int
}

// NewForm returns an empty form with the default category, repeat settings
// and notification lead time.
func NewForm() Form {
	return Form{
		Category:         model.Categories[0],
		RepeatType:       model.RepeatDaily,
		RepeatInterval:   1,
		NotificationTime: model.DefaultNotificationTime,
	}
}

// FormFrom loads e into a form for editing.
func FormFrom(e model.Event) Form {
	f := Form{
		Title:            e.Title,
		Date:             e.Date,
		StartTime:        e.StartTime,
		EndTime:          e.EndTime,
		Description:      e.Description,
		Location:         e.Location,
		Category:         e.Category,
		IsRepeating:      e.Repeat.Type != model.RepeatNone && e.Repeat.Type != "",
		RepeatType:       e.Repeat.Type,
		RepeatInterval:   e.Repeat.Interval,
		RepeatEndDate:    e.Repeat.EndDate,
		NotificationTime: e.NotificationTime,
	}
	if !f.IsRepeating {
		f.RepeatType = model.RepeatDaily
		f.RepeatInterval = 1
	}
	return f
}

// Validate checks required fields, then time order, then that a repeating
// form does not end before it starts.
func (f Form) Validate() error {
	if strings.TrimSpace(f.Title) == "" || f.Date == "" || f.StartTime == "" || f.EndTime == "" {
		return &ValidationError{Message: MsgRequiredFields}
	}
	start, err := model.ClockMinutes(f.StartTime)
	if err != nil {
		return &ValidationError{Message: MsgTimeInvalid}
	}
	end, err := model.ClockMinutes(f.EndTime)
	if err != nil || start >= end {
		return &ValidationError{Message: MsgTimeInvalid}
	}
	if f.IsRepeating && f.RepeatEndDate != "" {
		first, err := model.ParseDate(f.Date)
		if err != nil {
			return &ValidationError{Message: MsgRepeatEnd}
		}
		last, err := model.ParseDate(f.RepeatEndDate)
		if err != nil || last.Before(first) {
			return &ValidationError{Message: MsgRepeatEnd}
		}
	}
	return nil
}

// Repeat returns the repeat descriptor the form describes.
func (f Form) Repeat() model.Repeat {
	if !f.IsRepeating {
		return model.NoRepeat()
	}
	return model.Repeat{Type: f.RepeatType, Interval: f.RepeatInterval, EndDate: f.RepeatEndDate}
}

// Event builds an event from the form with the given id and repeat.
func (f Form) Event(id string, repeat model.Repeat) model.Event {
	return model.Event{
		ID:               id,
		Title:            f.Title,
		Date:             f.Date,
		StartTime:        f.StartTime,
		EndTime:          f.EndTime,
		Description:      f.Description,
		Location:         f.Location,
		Category:         f.Category,
		Repeat:           repeat,
		NotificationTime: f.NotificationTime,
	}
}
