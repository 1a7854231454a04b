package recurrence

import (
	"testing"

	"github.com/dukerupert/daywich/internal/model"
)

func template(date string, typ model.RepeatType, interval int, endDate string) model.Event {
	return model.Event{
		Title:            "반복 일정",
		Date:             date,
		StartTime:        "10:00",
		EndTime:          "11:00",
		Category:         "업무",
		NotificationTime: 10,
		Repeat:           model.Repeat{Type: typ, Interval: interval, EndDate: endDate},
	}
}

func dates(events []model.Event) []string {
	var out []string
	for _, e := range events {
		out = append(out, e.Date)
	}
	return out
}

func assertDates(t *testing.T, got []model.Event, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d instances %v, want %d %v", len(got), dates(got), len(want), want)
	}
	for i := range want {
		if got[i].Date != want[i] {
			t.Errorf("instance[%d] = %s, want %s", i, got[i].Date, want[i])
		}
	}
}

func TestGenerateNoneReturnsTemplate(t *testing.T) {
	tmpl := template("2025-10-15", model.RepeatNone, 0, "")
	tmpl.Description = "단일"

	got, err := Generate(tmpl, Options{})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d instances, want 1", len(got))
	}
	if got[0] != tmpl {
		t.Errorf("instance = %+v, want %+v", got[0], tmpl)
	}
}

func TestGenerateWeekly(t *testing.T) {
	got, err := Generate(template("2025-10-15", model.RepeatWeekly, 1, "2025-10-29"), Options{})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	assertDates(t, got, []string{"2025-10-15", "2025-10-22", "2025-10-29"})
}

func TestGenerateDailyInterval(t *testing.T) {
	got, err := Generate(template("2025-10-16", model.RepeatDaily, 2, "2025-10-22"), Options{})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	assertDates(t, got, []string{"2025-10-16", "2025-10-18", "2025-10-20", "2025-10-22"})
}

func TestGenerateMonthly31stSkipsShortMonths(t *testing.T) {
	got, err := Generate(template("2025-01-31", model.RepeatMonthly, 1, "2025-04-30"), Options{})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	// Feb and Apr have no 31st
	assertDates(t, got, []string{"2025-01-31", "2025-03-31"})

	for _, e := range got {
		if _, err := model.ParseDate(e.Date); err != nil {
			t.Errorf("invalid date produced: %s", e.Date)
		}
	}
}

func TestGenerateMonthly30thSkipsFebruary(t *testing.T) {
	got, err := Generate(template("2024-01-30", model.RepeatMonthly, 1, "2024-04-30"), Options{})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	assertDates(t, got, []string{"2024-01-30", "2024-03-30", "2024-04-30"})
}

func TestGenerateYearlyLeapDay(t *testing.T) {
	got, err := Generate(template("2024-02-29", model.RepeatYearly, 1, "2032-12-31"), Options{})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	assertDates(t, got, []string{"2024-02-29", "2028-02-29", "2032-02-29"})
}

func TestGenerateYearly(t *testing.T) {
	got, err := Generate(template("2025-06-15", model.RepeatYearly, 1, "2028-06-15"), Options{})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	assertDates(t, got, []string{"2025-06-15", "2026-06-15", "2027-06-15", "2028-06-15"})
}

func TestGenerateEndDateBeforeStart(t *testing.T) {
	got, err := Generate(template("2025-10-15", model.RepeatDaily, 1, "2025-10-14"), Options{})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d instances, want 0", len(got))
	}
}

func TestGenerateWithoutEndDateUsesHorizon(t *testing.T) {
	got, err := Generate(template("2025-01-01", model.RepeatMonthly, 1, ""), Options{})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	// 2025-01-01 .. 2026-01-01 inclusive
	if len(got) != 13 {
		t.Fatalf("got %d instances, want 13", len(got))
	}
	if last := got[len(got)-1].Date; last != "2026-01-01" {
		t.Errorf("last = %s, want 2026-01-01", last)
	}
}

func TestGenerateCapsOccurrences(t *testing.T) {
	got, err := Generate(template("2025-01-01", model.RepeatDaily, 1, "2035-01-01"), Options{MaxOccurrences: 50})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(got) != 50 {
		t.Fatalf("got %d instances, want 50", len(got))
	}
}

func TestGenerateCopiesTemplate(t *testing.T) {
	tmpl := template("2025-10-15", model.RepeatWeekly, 1, "2025-11-15")
	tmpl.Repeat.ID = ""

	got, err := Generate(tmpl, Options{})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	prev := ""
	for i, e := range got {
		if e.Title != tmpl.Title || e.StartTime != "10:00" || e.EndTime != "11:00" || e.NotificationTime != 10 {
			t.Errorf("instance[%d] fields differ from template: %+v", i, e)
		}
		if e.Repeat != tmpl.Repeat {
			t.Errorf("instance[%d] repeat = %+v, want %+v", i, e.Repeat, tmpl.Repeat)
		}
		if e.Repeat.ID != "" {
			t.Errorf("instance[%d] has repeat id %q", i, e.Repeat.ID)
		}
		if e.Date <= prev {
			t.Errorf("instance[%d] %s not after %s", i, e.Date, prev)
		}
		if e.Date > tmpl.Repeat.EndDate {
			t.Errorf("instance[%d] %s past end date", i, e.Date)
		}
		prev = e.Date
	}
}

func TestGenerateInvalidInput(t *testing.T) {
	tests := []model.Event{
		template("2025-13-01", model.RepeatDaily, 1, ""),
		template("2025-10-01", model.RepeatDaily, 1, "not-a-date"),
		template("2025-10-01", model.RepeatType("hourly"), 1, ""),
	}
	for _, tmpl := range tests {
		if _, err := Generate(tmpl, Options{}); err == nil {
			t.Errorf("Generate(%+v) should error", tmpl)
		}
	}
}

func TestRuleString(t *testing.T) {
	tests := []struct {
		repeat model.Repeat
		want   string
	}{
		{model.Repeat{Type: model.RepeatDaily, Interval: 1}, "FREQ=DAILY"},
		{model.Repeat{Type: model.RepeatWeekly, Interval: 2}, "FREQ=WEEKLY;INTERVAL=2"},
		{model.Repeat{Type: model.RepeatMonthly, Interval: 0}, "FREQ=MONTHLY"},
		{model.Repeat{Type: model.RepeatYearly, Interval: 1, EndDate: "2026-03-01"}, "FREQ=YEARLY;UNTIL=20260301T000000Z"},
	}

	for _, tt := range tests {
		r, err := FromRepeat(tt.repeat)
		if err != nil {
			t.Errorf("FromRepeat(%+v) error: %v", tt.repeat, err)
			continue
		}
		if got := r.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		repeat model.Repeat
		want   string
	}{
		{model.Repeat{Type: model.RepeatDaily, Interval: 1}, "반복: 1일마다"},
		{model.Repeat{Type: model.RepeatWeekly, Interval: 2, EndDate: "2025-11-15"}, "반복: 2주마다 (종료: 2025-11-15)"},
		{model.Repeat{Type: model.RepeatMonthly, Interval: 3}, "반복: 3월마다"},
		{model.Repeat{Type: model.RepeatYearly, Interval: 1}, "반복: 1년마다"},
		{model.NoRepeat(), ""},
	}

	for _, tt := range tests {
		if got := Describe(tt.repeat); got != tt.want {
			t.Errorf("Describe(%+v) = %q, want %q", tt.repeat, got, tt.want)
		}
	}
}
