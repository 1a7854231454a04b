package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestIsRecurring(t *testing.T) {
	tests := []struct {
		repeat Repeat
		want   bool
	}{
		{Repeat{Type: RepeatNone, Interval: 0}, false},
		{Repeat{Type: RepeatNone, Interval: 1}, false},
		{Repeat{Type: RepeatWeekly, Interval: 1}, true},
		{Repeat{Type: RepeatDaily, Interval: 3}, true},
		// interval 0 is treated as non-recurring even with a real type
		{Repeat{Type: RepeatWeekly, Interval: 0}, false},
		{Repeat{}, false},
	}

	for _, tt := range tests {
		got := IsRecurring(Event{Repeat: tt.repeat})
		if got != tt.want {
			t.Errorf("IsRecurring(%+v) = %v, want %v", tt.repeat, got, tt.want)
		}
	}
}

func TestDemote(t *testing.T) {
	e := Event{
		ID:     "abc",
		Date:   "2025-10-15",
		Repeat: Repeat{Type: RepeatWeekly, Interval: 1, EndDate: "2025-10-29", ID: "series-1"},
	}
	got := Demote(e)
	if got.ID != "abc" {
		t.Errorf("id = %q, want abc", got.ID)
	}
	if got.Repeat.Type != RepeatNone || got.Repeat.Interval != 0 {
		t.Errorf("repeat = %+v, want none/0", got.Repeat)
	}
	if got.Repeat.ID != "" || got.Repeat.EndDate != "" {
		t.Errorf("repeat linkage not cleared: %+v", got.Repeat)
	}
	if e.Repeat.ID != "series-1" {
		t.Error("Demote must not modify its argument")
	}
}

func TestSeriesPatchApply(t *testing.T) {
	e := Event{
		ID:        "1",
		Title:     "주간 회의",
		Date:      "2025-10-22",
		StartTime: "09:00",
		EndTime:   "10:00",
		Repeat:    Repeat{Type: RepeatWeekly, Interval: 1, ID: "s"},
	}

	title := "팀 회의"
	interval := 2
	p := SeriesPatch{Title: &title, Repeat: &RepeatPatch{Interval: &interval}}

	got := p.Apply(e)
	if got.Title != "팀 회의" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Date != "2025-10-22" {
		t.Errorf("date changed to %q", got.Date)
	}
	if got.StartTime != "09:00" {
		t.Errorf("startTime changed to %q", got.StartTime)
	}
	if got.Repeat.Interval != 2 || got.Repeat.Type != RepeatWeekly || got.Repeat.ID != "s" {
		t.Errorf("repeat = %+v", got.Repeat)
	}
}

func TestPatchFromRoundTrip(t *testing.T) {
	src := Event{
		Title:            "A",
		Description:      "B",
		Location:         "C",
		Category:         "업무",
		StartTime:        "13:00",
		EndTime:          "14:00",
		NotificationTime: 0,
		Date:             "2025-01-01",
		Repeat:           Repeat{Type: RepeatDaily, Interval: 1},
	}
	target := Event{ID: "x", Date: "2025-03-03", NotificationTime: 60, Repeat: Repeat{ID: "keep"}}

	got := PatchFrom(src).Apply(target)
	if got.Date != "2025-03-03" || got.ID != "x" || got.Repeat.ID != "keep" {
		t.Errorf("identity fields changed: %+v", got)
	}
	if got.NotificationTime != 0 {
		t.Errorf("notificationTime = %d, want 0", got.NotificationTime)
	}
	if got.Title != "A" || got.Category != "업무" || got.StartTime != "13:00" {
		t.Errorf("fields not copied: %+v", got)
	}
}

func TestClockMinutes(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"9", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ClockMinutes(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ClockMinutes(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ClockMinutes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStartAt(t *testing.T) {
	e := Event{Date: "2025-10-04", StartTime: "14:00", EndTime: "15:30"}
	start, err := e.StartAt(time.UTC)
	if err != nil {
		t.Fatalf("StartAt: %v", err)
	}
	if want := time.Date(2025, 10, 4, 14, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
	end, _ := e.EndAt(time.UTC)
	if end.Sub(start) != 90*time.Minute {
		t.Errorf("duration = %v, want 90m", end.Sub(start))
	}
}

func TestEventJSONWireNames(t *testing.T) {
	e := Event{Title: "회의", Date: "2025-10-04", StartTime: "14:00", EndTime: "15:00", Repeat: NoRepeat(), NotificationTime: 10}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	json.Unmarshal(data, &m)
	for _, key := range []string{"title", "date", "startTime", "endTime", "repeat", "notificationTime"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if _, ok := m["id"]; ok {
		t.Errorf("empty id should be omitted: %s", data)
	}
}
