// Package planner drives one user's calendar session: the form draft, the
// cached event list, the edit/drag coordinator and the recurring-scope
// prompt. Every action reads and writes events through an EventStore.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/daywich/internal/coordinator"
	"github.com/dukerupert/daywich/internal/model"
	"github.com/dukerupert/daywich/internal/overlap"
	"github.com/dukerupert/daywich/internal/recurrence"
	"github.com/dukerupert/daywich/internal/recurring"
	"github.com/dukerupert/daywich/internal/search"
)

// ErrPromptOpen is returned by actions attempted while a prompt awaits an
// answer.
var ErrPromptOpen = errors.New("a prompt is awaiting an answer")

// EventStore is implemented by the SQLite store and by the HTTP client.
type EventStore interface {
	recurring.Store
	List(ctx context.Context) ([]model.Event, error)
	Create(ctx context.Context, e model.Event) (*model.Event, error)
	CreateSeries(ctx context.Context, events []model.Event) ([]model.Event, error)
}

// Prompt is the dialog the session is waiting on.
type Prompt int

const (
	NoPrompt Prompt = iota
	EditCancelPrompt
	DragEditCancelPrompt
	RecurringEditPrompt
	RecurringDeletePrompt
)

func (p Prompt) String() string {
	switch p {
	case EditCancelPrompt:
		return "edit_cancel"
	case DragEditCancelPrompt:
		return "drag_edit_cancel"
	case RecurringEditPrompt:
		return "recurring_edit"
	case RecurringDeletePrompt:
		return "recurring_delete"
	}
	return "none"
}

// Result carries the success message of a completed action, if any.
type Result struct {
	Message string
}

type SubmitOptions struct {
	// Force skips the overlap check.
	Force bool
}

// Session is not safe for concurrent use.
type Session struct {
	store  EventStore
	logger *slog.Logger
	repeat recurrence.Options

	coord  *coordinator.Coordinator
	events []model.Event
	form   Form

	// search box and calendar view the user is looking at
	term    string
	view    search.View
	current time.Time

	// recurring scope prompt
	pending     *model.Event
	pendingMode Prompt
	editScope   *recurring.Scope
}

func New(store EventStore, logger *slog.Logger, repeat recurrence.Options) *Session {
	s := &Session{
		store:  store,
		logger: logger,
		repeat: repeat,
		form:   NewForm(),
	}
	s.coord = coordinator.New(s.lookup)
	return s
}

func (s *Session) lookup(id string) (model.Event, bool) {
	for _, e := range s.events {
		if e.ID == id {
			return e, true
		}
	}
	return model.Event{}, false
}

// Events returns a copy of the cached event list.
func (s *Session) Events() []model.Event {
	return append([]model.Event(nil), s.events...)
}

// Visible returns the cached events matching term inside the view around
// current.
func (s *Session) Visible(term string, view search.View, current time.Time) []model.Event {
	return search.Filter(s.events, term, view, current)
}

// SetFilter records the search term and calendar view on screen. Date
// clicks only see the events that filter leaves visible.
func (s *Session) SetFilter(term string, view search.View, current time.Time) {
	s.term, s.view, s.current = term, view, current
}

func (s *Session) Form() Form {
	return s.form
}

// SetForm replaces the draft, as typing into the form does.
func (s *Session) SetForm(f Form) {
	s.form = f
}

func (s *Session) State() coordinator.State {
	return s.coord.State()
}

func (s *Session) Prompt() Prompt {
	if s.pending != nil {
		return s.pendingMode
	}
	switch s.coord.State().(type) {
	case coordinator.AwaitingClick:
		return EditCancelPrompt
	case coordinator.AwaitingDrag:
		return DragEditCancelPrompt
	}
	return NoPrompt
}

// Load fetches the event list for a fresh session.
func (s *Session) Load(ctx context.Context) (Result, error) {
	if err := s.Refresh(ctx); err != nil {
		return Result{}, err
	}
	return Result{Message: MsgEventsLoaded}, nil
}

// Refresh replaces the cached events with the store's. On failure the cache
// is left as it was.
func (s *Session) Refresh(ctx context.Context) error {
	events, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("fetch events", "error", err)
		return fmt.Errorf("%s: %w", MsgFetchFailed, err)
	}
	s.events = events
	return nil
}

// ClickDate handles a click on a date cell.
func (s *Session) ClickDate(ctx context.Context, date string) (Result, error) {
	if s.pending != nil {
		return Result{}, ErrPromptOpen
	}
	hasEvents := false
	for _, e := range search.Filter(s.events, s.term, s.view, s.current) {
		if e.Date == date {
			hasEvents = true
			break
		}
	}
	return s.apply(ctx, s.coord.Handle(coordinator.DateCellClicked{Date: date, HasEvents: hasEvents}))
}

// BeginEdit starts editing e. A recurring event first opens the recurring
// edit prompt; ChooseRecurring then loads the form.
func (s *Session) BeginEdit(ctx context.Context, e model.Event) error {
	if s.Prompt() != NoPrompt {
		return ErrPromptOpen
	}
	if model.IsRecurring(e) {
		s.pending = &e
		s.pendingMode = RecurringEditPrompt
		return nil
	}
	s.editScope = nil
	_, err := s.apply(ctx, s.coord.Handle(coordinator.EditStarted{Event: e}))
	return err
}

// Delete removes e. A recurring event first opens the recurring delete
// prompt and nothing is removed until ChooseRecurring.
func (s *Session) Delete(ctx context.Context, e model.Event) (Result, error) {
	if s.Prompt() != NoPrompt {
		return Result{}, ErrPromptOpen
	}
	if model.IsRecurring(e) {
		s.pending = &e
		s.pendingMode = RecurringDeletePrompt
		return Result{}, nil
	}
	if err := s.store.Delete(ctx, e.ID); err != nil {
		s.logger.Error("delete event", "id", e.ID, "error", err)
		return Result{}, fmt.Errorf("%s: %w", MsgDeleteFailed, err)
	}
	return s.refreshed(ctx, MsgEventDeleted)
}

// ChooseRecurring answers the recurring prompt. singleOnly selects the
// instance alone, otherwise the whole series.
func (s *Session) ChooseRecurring(ctx context.Context, singleOnly bool) (Result, error) {
	if s.pending == nil {
		return Result{}, nil
	}
	e, mode := *s.pending, s.pendingMode
	s.pending, s.pendingMode = nil, NoPrompt
	scope := recurring.ScopeFor(singleOnly)

	if mode == RecurringEditPrompt {
		s.editScope = &scope
		return s.apply(ctx, s.coord.Handle(coordinator.EditStarted{Event: e}))
	}

	plan, err := recurring.ResolveDelete(e, scope)
	if err == nil {
		err = plan.Apply(ctx, s.store)
	}
	if err != nil {
		s.logger.Error("delete recurring event", "id", e.ID, "repeat_id", e.Repeat.ID, "scope", scope, "error", err)
		return Result{}, fmt.Errorf("%s: %w", MsgDeleteFailed, err)
	}
	return s.refreshed(ctx, MsgEventDeleted)
}

// DismissRecurring closes the recurring prompt without acting.
func (s *Session) DismissRecurring() {
	s.pending, s.pendingMode = nil, NoPrompt
}

// ResetForm clears the draft and ends any edit in progress.
func (s *Session) ResetForm() {
	s.resetForm()
	s.coord.Handle(coordinator.EditFinished{})
}

func (s *Session) resetForm() {
	s.form = NewForm()
	s.editScope = nil
}

// Submit saves the form: an update when an edit is in progress, otherwise a
// create. Creating a repeating event expands it into a series and skips the
// overlap check. A refresh failure after a successful save is returned
// alongside the success message.
func (s *Session) Submit(ctx context.Context, opts SubmitOptions) (Result, error) {
	if s.Prompt() != NoPrompt {
		return Result{}, ErrPromptOpen
	}
	if err := s.form.Validate(); err != nil {
		return Result{}, err
	}

	if editing, ok := s.coord.EditingEvent(); ok {
		return s.submitEdit(ctx, editing, opts)
	}

	data := s.form.Event("", s.form.Repeat())
	if data.Repeat.Type != model.RepeatNone {
		instances, err := recurrence.Generate(data, s.repeat)
		if err == nil && len(instances) == 0 {
			return Result{}, &ValidationError{Message: MsgRepeatEnd}
		}
		if err == nil {
			_, err = s.store.CreateSeries(ctx, instances)
		}
		if err != nil {
			s.logger.Error("create series", "title", data.Title, "error", err)
			return Result{}, fmt.Errorf("%s: %w", MsgSaveFailed, err)
		}
		s.resetForm()
		return s.refreshed(ctx, MsgEventAdded)
	}

	if !opts.Force {
		if found := overlap.FindOverlapping(data, s.events); len(found) > 0 {
			return Result{}, &ConflictError{Overlapping: found}
		}
	}
	if _, err := s.store.Create(ctx, data); err != nil {
		s.logger.Error("create event", "title", data.Title, "error", err)
		return Result{}, fmt.Errorf("%s: %w", MsgSaveFailed, err)
	}
	s.resetForm()
	return s.refreshed(ctx, MsgEventAdded)
}

// submitEdit keeps the edited event's repeat descriptor; a recurring event
// edited with a chosen scope goes through the mutation resolver.
func (s *Session) submitEdit(ctx context.Context, editing model.Event, opts SubmitOptions) (Result, error) {
	data := s.form.Event(editing.ID, editing.Repeat)
	if !opts.Force {
		if found := overlap.FindOverlapping(data, s.events); len(found) > 0 {
			return Result{}, &ConflictError{Overlapping: found}
		}
	}

	var err error
	if model.IsRecurring(editing) && s.editScope != nil {
		var plan recurring.Plan
		plan, err = recurring.ResolveEdit(editing, data, *s.editScope)
		if err == nil {
			err = plan.Apply(ctx, s.store)
		}
	} else {
		_, err = s.store.Update(ctx, editing.ID, data)
	}
	if err != nil {
		s.logger.Error("update event", "id", editing.ID, "error", err)
		return Result{}, fmt.Errorf("%s: %w", MsgSaveFailed, err)
	}

	s.ResetForm()
	return s.refreshed(ctx, MsgEventUpdated)
}

func (s *Session) DragStart(id string) {
	s.coord.Handle(coordinator.DragStarted{ID: id})
}

func (s *Session) DragCancel(id string) {
	s.coord.Handle(coordinator.DragCancelled{ID: id})
}

// DragEnd handles a drop of event id. An empty target means it was released
// outside any date cell.
func (s *Session) DragEnd(ctx context.Context, id, target string) (Result, error) {
	if s.pending != nil {
		return Result{}, ErrPromptOpen
	}
	return s.apply(ctx, s.coord.Handle(coordinator.DragEnded{ID: id, Target: target}))
}

// ResolveEditCancel answers the edit-cancel prompt opened by a click or drag.
func (s *Session) ResolveEditCancel(ctx context.Context, choice coordinator.Choice) (Result, error) {
	return s.apply(ctx, s.coord.Handle(coordinator.Resolve{Choice: choice}))
}

func (s *Session) apply(ctx context.Context, effects []coordinator.Effect) (Result, error) {
	var res Result
	for _, eff := range effects {
		switch e := eff.(type) {
		case coordinator.SetFormDate:
			s.form.Date = e.Date
		case coordinator.ResetForm:
			s.resetForm()
		case coordinator.LoadForm:
			s.form = FormFrom(e.Event)
		case coordinator.PromptEditCancel:
			// surfaced through Prompt
		case coordinator.CommitDrag:
			r, err := s.commitDrag(ctx, e.Event, e.Date)
			if err != nil {
				return r, err
			}
			res = r
		}
	}
	return res, nil
}

// commitDrag moves e to date as a standalone event. Dropping on its own date
// does nothing; an overlap blocks the move.
func (s *Session) commitDrag(ctx context.Context, e model.Event, date string) (Result, error) {
	if e.Date == date {
		return Result{}, nil
	}
	moved := model.Demote(e)
	moved.Date = date

	if found := overlap.FindOverlapping(moved, s.events); len(found) > 0 {
		return Result{}, &ConflictError{Overlapping: found, Blocking: true}
	}
	if _, err := s.store.Update(ctx, e.ID, moved); err != nil {
		s.logger.Error("move event", "id", e.ID, "date", date, "error", err)
		return Result{}, fmt.Errorf("%s: %w", MsgSaveFailed, err)
	}
	return s.refreshed(ctx, MsgEventUpdated)
}

func (s *Session) refreshed(ctx context.Context, msg string) (Result, error) {
	if err := s.Refresh(ctx); err != nil {
		return Result{Message: msg}, err
	}
	return Result{Message: msg}, nil
}
