// Package ical renders stored events as an iCalendar feed.
package ical

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/dukerupert/daywich/internal/model"
	"github.com/dukerupert/daywich/internal/notify"
	"github.com/dukerupert/daywich/internal/recurrence"
)

const (
	ProductID = "-//daywich//calendar//KO"

	propSeries = ics.ComponentProperty("X-DAYWICH-SERIES")
	propRepeat = ics.ComponentProperty("X-DAYWICH-RRULE")
)

type Options struct {
	Location *time.Location
	Now      time.Time
}

// Export writes one VEVENT per stored event. Series instances are already
// materialized, so the repeat rule is carried as an extension property
// rather than an RRULE. Events with unparsable dates or times are skipped.
func Export(w io.Writer, events []model.Event, opts Options) error {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName("daywich")

	for _, e := range events {
		start, err := e.StartAt(opts.Location)
		if err != nil {
			continue
		}
		end, err := e.EndAt(opts.Location)
		if err != nil {
			continue
		}

		ve := cal.AddEvent(e.ID + "@daywich")
		ve.SetDtStampTime(opts.Now)
		ve.SetStartAt(start)
		ve.SetEndAt(end)
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.Category != "" {
			ve.SetProperty(ics.ComponentPropertyCategories, e.Category)
		}

		if e.Repeat.ID != "" {
			ve.SetProperty(propSeries, e.Repeat.ID)
		}
		if model.IsRecurring(e) {
			if rule, err := recurrence.FromRepeat(e.Repeat); err == nil {
				ve.SetProperty(propRepeat, rule.String())
			}
		}

		if e.NotificationTime > 0 {
			alarm := ve.AddAlarm()
			alarm.SetAction(ics.ActionDisplay)
			alarm.SetTrigger(fmt.Sprintf("-PT%dM", e.NotificationTime))
			alarm.SetProperty(ics.ComponentPropertyDescription, notify.Message(e.NotificationTime, e.Title))
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	return nil
}
