// Package recurring decides which stored records an edit or delete of one
// instance of a recurring series touches.
package recurring

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/daywich/internal/model"
)

// ErrNoSeries is returned when a whole-series mutation is requested for an
// instance that carries no series id.
var ErrNoSeries = errors.New("instance has no series id")

type Scope int

const (
	SingleInstance Scope = iota
	WholeSeries
)

// ScopeFor maps the answer of the "this instance only?" prompt to a Scope.
func ScopeFor(singleInstanceOnly bool) Scope {
	if singleInstanceOnly {
		return SingleInstance
	}
	return WholeSeries
}

type Kind int

const (
	UpdateOne Kind = iota
	UpdateSeries
	DeleteOne
	DeleteSeries
)

func (k Kind) String() string {
	switch k {
	case UpdateOne:
		return "update_one"
	case UpdateSeries:
		return "update_series"
	case DeleteOne:
		return "delete_one"
	case DeleteSeries:
		return "delete_series"
	}
	return "unknown"
}

// Plan is the store mutation chosen for a recurring edit or delete.
type Plan struct {
	Kind     Kind
	ID       string
	RepeatID string
	Event    model.Event       // UpdateOne payload
	Patch    model.SeriesPatch // UpdateSeries payload
}

// Store is the subset of the event store a Plan needs.
type Store interface {
	Update(ctx context.Context, id string, e model.Event) (*model.Event, error)
	Delete(ctx context.Context, id string) error
	UpdateSeries(ctx context.Context, repeatID string, patch model.SeriesPatch) ([]model.Event, error)
	DeleteSeries(ctx context.Context, repeatID string) error
}

// ResolveEdit plans an edit of instance whose new field values are in
// edited. A single-instance edit keeps the instance's repeat descriptor, so
// the record stays tagged with its series. A whole-series edit carries every
// non-date field; each instance keeps its own date.
func ResolveEdit(instance, edited model.Event, scope Scope) (Plan, error) {
	if scope == SingleInstance {
		e := edited
		e.ID = instance.ID
		e.Repeat = instance.Repeat
		return Plan{Kind: UpdateOne, ID: instance.ID, Event: e}, nil
	}

	if instance.Repeat.ID == "" {
		return Plan{}, ErrNoSeries
	}
	patch := model.PatchFrom(edited)
	return Plan{Kind: UpdateSeries, RepeatID: instance.Repeat.ID, Patch: patch}, nil
}

// ResolveDelete plans a delete of instance.
func ResolveDelete(instance model.Event, scope Scope) (Plan, error) {
	if scope == SingleInstance {
		return Plan{Kind: DeleteOne, ID: instance.ID}, nil
	}
	if instance.Repeat.ID == "" {
		return Plan{}, ErrNoSeries
	}
	return Plan{Kind: DeleteSeries, RepeatID: instance.Repeat.ID}, nil
}

// Apply executes the plan with a single store call. model.ErrNotFound from
// the store is returned wrapped and nothing else is attempted.
func (p Plan) Apply(ctx context.Context, s Store) error {
	var err error
	switch p.Kind {
	case UpdateOne:
		_, err = s.Update(ctx, p.ID, p.Event)
	case UpdateSeries:
		_, err = s.UpdateSeries(ctx, p.RepeatID, p.Patch)
	case DeleteOne:
		err = s.Delete(ctx, p.ID)
	case DeleteSeries:
		err = s.DeleteSeries(ctx, p.RepeatID)
	default:
		return fmt.Errorf("unknown plan kind %d", p.Kind)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", p.Kind, err)
	}
	return nil
}
