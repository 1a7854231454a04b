// Package coordinator gates date-cell clicks and drag-drops while an event
// edit is in progress. It holds one state value and answers every message
// with the effects the caller must carry out.
package coordinator

import "github.com/dukerupert/daywich/internal/model"

// State is one of Idle, Editing, AwaitingClick or AwaitingDrag.
type State interface {
	isState()
	String() string
}

type Idle struct{}

type Editing struct {
	Event model.Event
}

// AwaitingClick is waiting for the user to keep or cancel the edit after a
// date-cell click.
type AwaitingClick struct {
	Editing model.Event
	Date    string
}

// AwaitingDrag is waiting for the user to keep or cancel the edit after
// another event was dropped on Target.
type AwaitingDrag struct {
	Editing model.Event
	Dragged model.Event
	Target  string
}

func (Idle) isState()          {}
func (Editing) isState()       {}
func (AwaitingClick) isState() {}
func (AwaitingDrag) isState()  {}

func (Idle) String() string          { return "idle" }
func (Editing) String() string       { return "editing" }
func (AwaitingClick) String() string { return "awaiting_click" }
func (AwaitingDrag) String() string  { return "awaiting_drag" }

// Message is a user action fed to the coordinator.
type Message interface{ isMessage() }

type EditStarted struct{ Event model.Event }

// EditFinished is sent after the edit form was saved or reset.
type EditFinished struct{}

type DateCellClicked struct {
	Date      string
	HasEvents bool
}

type DragStarted struct{ ID string }

// DragEnded reports a drop. An empty Target means the pointer was released
// outside any droppable cell.
type DragEnded struct {
	ID     string
	Target string
}

type DragCancelled struct{ ID string }

type Choice int

const (
	KeepEdit Choice = iota
	CancelEdit
)

type Resolve struct{ Choice Choice }

func (EditStarted) isMessage()     {}
func (EditFinished) isMessage()    {}
func (DateCellClicked) isMessage() {}
func (DragStarted) isMessage()     {}
func (DragEnded) isMessage()       {}
func (DragCancelled) isMessage()   {}
func (Resolve) isMessage()         {}

// Effect is an instruction for the caller.
type Effect interface{ isEffect() }

type SetFormDate struct{ Date string }

type ResetForm struct{}

type LoadForm struct{ Event model.Event }

// CommitDrag asks the caller to move Event to Date.
type CommitDrag struct {
	Event model.Event
	Date  string
}

// PromptEditCancel asks the user whether to abandon the current edit.
type PromptEditCancel struct{ Drag bool }

func (SetFormDate) isEffect()      {}
func (ResetForm) isEffect()        {}
func (LoadForm) isEffect()         {}
func (CommitDrag) isEffect()       {}
func (PromptEditCancel) isEffect() {}

// Lookup resolves a dragged event id against the current event list.
type Lookup func(id string) (model.Event, bool)

type Coordinator struct {
	state    State
	lookup   Lookup
	dragging string
}

func New(lookup Lookup) *Coordinator {
	return &Coordinator{state: Idle{}, lookup: lookup}
}

func (c *Coordinator) State() State {
	return c.state
}

// Dragging returns the id of the event being dragged, if any.
func (c *Coordinator) Dragging() (string, bool) {
	return c.dragging, c.dragging != ""
}

// EditingEvent returns the event whose edit is in progress, in any state
// other than Idle.
func (c *Coordinator) EditingEvent() (model.Event, bool) {
	switch s := c.state.(type) {
	case Editing:
		return s.Event, true
	case AwaitingClick:
		return s.Editing, true
	case AwaitingDrag:
		return s.Editing, true
	}
	return model.Event{}, false
}

// Handle applies msg and returns the resulting effects in order.
func (c *Coordinator) Handle(msg Message) []Effect {
	switch m := msg.(type) {
	case EditStarted:
		return c.editStarted(m)
	case EditFinished:
		if _, ok := c.state.(Editing); ok {
			c.state = Idle{}
		}
		return nil
	case DateCellClicked:
		return c.dateCellClicked(m)
	case DragStarted:
		c.dragging = m.ID
		return nil
	case DragCancelled:
		c.dragging = ""
		return nil
	case DragEnded:
		c.dragging = ""
		return c.dragEnded(m)
	case Resolve:
		return c.resolve(m.Choice)
	}
	return nil
}

func (c *Coordinator) editStarted(m EditStarted) []Effect {
	switch c.state.(type) {
	case Idle, Editing:
		c.state = Editing{Event: m.Event}
		return []Effect{LoadForm{Event: m.Event}}
	}
	// a prompt is open
	return nil
}

func (c *Coordinator) dateCellClicked(m DateCellClicked) []Effect {
	if m.Date == "" {
		return nil
	}
	switch s := c.state.(type) {
	case Idle:
		if m.HasEvents {
			return nil
		}
		return []Effect{SetFormDate{Date: m.Date}}
	case Editing:
		c.state = AwaitingClick{Editing: s.Event, Date: m.Date}
		return []Effect{PromptEditCancel{Drag: false}}
	}
	return nil
}

func (c *Coordinator) dragEnded(m DragEnded) []Effect {
	if m.Target == "" {
		return nil
	}
	dragged, ok := c.lookup(m.ID)
	if !ok {
		return nil
	}

	switch s := c.state.(type) {
	case Idle:
		return []Effect{CommitDrag{Event: dragged, Date: m.Target}}
	case Editing:
		if s.Event.ID == dragged.ID {
			return []Effect{CommitDrag{Event: dragged, Date: m.Target}}
		}
		c.state = AwaitingDrag{Editing: s.Event, Dragged: dragged, Target: m.Target}
		return []Effect{PromptEditCancel{Drag: true}}
	}
	return nil
}

func (c *Coordinator) resolve(choice Choice) []Effect {
	switch s := c.state.(type) {
	case AwaitingClick:
		if choice == KeepEdit {
			c.state = Editing{Event: s.Editing}
			return nil
		}
		c.state = Idle{}
		return []Effect{ResetForm{}, SetFormDate{Date: s.Date}}
	case AwaitingDrag:
		if choice == KeepEdit {
			c.state = Editing{Event: s.Editing}
			return nil
		}
		c.state = Idle{}
		return []Effect{ResetForm{}, CommitDrag{Event: s.Dragged, Date: s.Target}}
	}
	return nil
}
