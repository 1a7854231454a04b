package recurring

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/daywich/internal/model"
)

type call struct {
	method string
	key    string
}

type fakeStore struct {
	calls []call
	err   error
}

func (f *fakeStore) Update(ctx context.Context, id string, e model.Event) (*model.Event, error) {
	f.calls = append(f.calls, call{"Update", id})
	if f.err != nil {
		return nil, f.err
	}
	return &e, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.calls = append(f.calls, call{"Delete", id})
	return f.err
}

func (f *fakeStore) UpdateSeries(ctx context.Context, repeatID string, patch model.SeriesPatch) ([]model.Event, error) {
	f.calls = append(f.calls, call{"UpdateSeries", repeatID})
	return nil, f.err
}

func (f *fakeStore) DeleteSeries(ctx context.Context, repeatID string) error {
	f.calls = append(f.calls, call{"DeleteSeries", repeatID})
	return f.err
}

func instance() model.Event {
	return model.Event{
		ID:               "evt-2",
		Title:            "주간 회의",
		Date:             "2025-10-22",
		StartTime:        "09:00",
		EndTime:          "10:00",
		NotificationTime: 10,
		Repeat:           model.Repeat{Type: model.RepeatWeekly, Interval: 1, EndDate: "2025-11-15", ID: "series-1"},
	}
}

func TestResolveEditSingleKeepsRepeat(t *testing.T) {
	inst := instance()
	edited := inst
	edited.Title = "변경된 회의"
	edited.Repeat = model.NoRepeat()

	plan, err := ResolveEdit(inst, edited, SingleInstance)
	if err != nil {
		t.Fatalf("ResolveEdit: %v", err)
	}
	if plan.Kind != UpdateOne || plan.ID != "evt-2" {
		t.Fatalf("plan = %+v, want UpdateOne evt-2", plan)
	}
	if plan.Event.Title != "변경된 회의" {
		t.Errorf("title = %q", plan.Event.Title)
	}
	if plan.Event.Repeat != inst.Repeat {
		t.Errorf("repeat = %+v, want original %+v", plan.Event.Repeat, inst.Repeat)
	}
}

func TestResolveEditSeries(t *testing.T) {
	inst := instance()
	edited := inst
	edited.Title = "팀 회의"
	edited.StartTime = "11:00"
	edited.EndTime = "12:00"
	edited.Date = "2030-01-01"

	plan, err := ResolveEdit(inst, edited, WholeSeries)
	if err != nil {
		t.Fatalf("ResolveEdit: %v", err)
	}
	if plan.Kind != UpdateSeries || plan.RepeatID != "series-1" {
		t.Fatalf("plan = %+v, want UpdateSeries series-1", plan)
	}

	other := model.Event{ID: "evt-3", Date: "2025-10-29", Repeat: model.Repeat{ID: "series-1"}}
	got := plan.Patch.Apply(other)
	if got.Date != "2025-10-29" {
		t.Errorf("patch changed date to %s", got.Date)
	}
	if got.Title != "팀 회의" || got.StartTime != "11:00" || got.EndTime != "12:00" {
		t.Errorf("patch not applied: %+v", got)
	}
	if got.Repeat.ID != "series-1" {
		t.Errorf("repeat id = %q", got.Repeat.ID)
	}
}

func TestResolveSeriesWithoutRepeatID(t *testing.T) {
	inst := instance()
	inst.Repeat.ID = ""

	if _, err := ResolveEdit(inst, inst, WholeSeries); !errors.Is(err, ErrNoSeries) {
		t.Errorf("ResolveEdit err = %v, want ErrNoSeries", err)
	}
	if _, err := ResolveDelete(inst, WholeSeries); !errors.Is(err, ErrNoSeries) {
		t.Errorf("ResolveDelete err = %v, want ErrNoSeries", err)
	}
}

func TestResolveDelete(t *testing.T) {
	inst := instance()

	single, _ := ResolveDelete(inst, SingleInstance)
	if single.Kind != DeleteOne || single.ID != "evt-2" {
		t.Errorf("single plan = %+v", single)
	}

	series, _ := ResolveDelete(inst, WholeSeries)
	if series.Kind != DeleteSeries || series.RepeatID != "series-1" {
		t.Errorf("series plan = %+v", series)
	}
}

func TestApplyMakesOneCall(t *testing.T) {
	inst := instance()
	tests := []struct {
		name string
		plan func() (Plan, error)
		want call
	}{
		{"edit single", func() (Plan, error) { return ResolveEdit(inst, inst, SingleInstance) }, call{"Update", "evt-2"}},
		{"edit series", func() (Plan, error) { return ResolveEdit(inst, inst, WholeSeries) }, call{"UpdateSeries", "series-1"}},
		{"delete single", func() (Plan, error) { return ResolveDelete(inst, SingleInstance) }, call{"Delete", "evt-2"}},
		{"delete series", func() (Plan, error) { return ResolveDelete(inst, WholeSeries) }, call{"DeleteSeries", "series-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := tt.plan()
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			s := &fakeStore{}
			if err := plan.Apply(context.Background(), s); err != nil {
				t.Fatalf("apply: %v", err)
			}
			if len(s.calls) != 1 || s.calls[0] != tt.want {
				t.Errorf("calls = %v, want [%v]", s.calls, tt.want)
			}
		})
	}
}

func TestApplyNotFound(t *testing.T) {
	plan, _ := ResolveDelete(instance(), WholeSeries)
	s := &fakeStore{err: model.ErrNotFound}

	err := plan.Apply(context.Background(), s)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(s.calls) != 1 {
		t.Errorf("calls = %v, want exactly one", s.calls)
	}
}

func TestScopeFor(t *testing.T) {
	if ScopeFor(true) != SingleInstance {
		t.Error("ScopeFor(true) should be SingleInstance")
	}
	if ScopeFor(false) != WholeSeries {
		t.Error("ScopeFor(false) should be WholeSeries")
	}
}
