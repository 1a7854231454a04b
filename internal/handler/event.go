package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/daywich/internal/ical"
	"github.com/dukerupert/daywich/internal/model"
	"github.com/dukerupert/daywich/internal/recurrence"
	"github.com/dukerupert/daywich/internal/search"
	"github.com/dukerupert/daywich/internal/store"
	"github.com/dukerupert/daywich/internal/websocket"
)

type EventHandler struct {
	eventStore *store.EventStore
	hub        *websocket.Hub
	logger     *slog.Logger
	loc        *time.Location
	repeat     recurrence.Options
}

func NewEventHandler(es *store.EventStore, hub *websocket.Hub, logger *slog.Logger, loc *time.Location, repeat recurrence.Options) *EventHandler {
	if loc == nil {
		loc = time.Local
	}
	return &EventHandler{eventStore: es, hub: hub, logger: logger, loc: loc, repeat: repeat}
}

func (h *EventHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type eventsResponse struct {
	Events []model.Event `json:"events"`
}

type eventListRequest struct {
	Events []json.RawMessage `json:"events"`
}

type deleteListRequest struct {
	EventIDs []string `json:"eventIds"`
}

func validateEvent(e model.Event) string {
	if _, err := model.ParseDate(e.Date); err != nil {
		return "date must be YYYY-MM-DD"
	}
	if e.Repeat.Type != "" && !e.Repeat.Type.Valid() {
		return "invalid repeat type"
	}
	if e.Repeat.EndDate != "" {
		if _, err := model.ParseDate(e.Repeat.EndDate); err != nil {
			return "repeat endDate must be YYYY-MM-DD"
		}
	}
	return ""
}

// mergeEvent overlays the top-level fields present in patch onto existing.
// A nested object such as repeat is replaced as a whole. The id is kept.
func mergeEvent(existing model.Event, patch json.RawMessage) (model.Event, error) {
	base, err := json.Marshal(existing)
	if err != nil {
		return model.Event{}, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return model.Event{}, err
	}
	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(patch, &overlay); err != nil {
		return model.Event{}, err
	}
	for k, v := range overlay {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return model.Event{}, err
	}

	var e model.Event
	if err := json.Unmarshal(merged, &e); err != nil {
		return model.Event{}, err
	}
	e.ID = existing.ID
	return e, nil
}

// List handles GET /api/events with optional q, view (month|week) and date.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, ok := search.ParseView(q.Get("view"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "view must be month or week"})
		return
	}
	current := time.Now().In(h.loc)
	if d := q.Get("date"); d != "" {
		parsed, err := model.ParseDate(d)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
			return
		}
		current = parsed
	}

	events, err := h.eventStore.List(r.Context())
	if err != nil {
		h.logger.Error("list events", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}
	if q.Get("q") != "" || view != search.ViewAll {
		events = search.Filter(events, q.Get("q"), view, current)
	}
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.eventStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("get event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if event == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.Event
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := validateEvent(req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	event, err := h.eventStore.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create event"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityEvent, websocket.ActionCreated, event.ID, map[string]any{"date": event.Date}))
	writeJSON(w, http.StatusCreated, event)
}

// Update handles PUT /api/events/{id}. Fields missing from the body keep
// their stored values.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	existing, err := h.eventStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	merged, err := mergeEvent(*existing, body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event fields"})
		return
	}
	if msg := validateEvent(merged); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	event, err := h.eventStore.Update(r.Context(), id, merged)
	if errors.Is(err, model.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}
	if err != nil {
		h.logger.Error("update event", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update event"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityEvent, websocket.ActionUpdated, id, map[string]any{"date": event.Date}))
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := h.eventStore.Delete(r.Context(), id)
	if errors.Is(err, model.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}
	if err != nil {
		h.logger.Error("delete event", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete event"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityEvent, websocket.ActionDeleted, id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// CreateList handles POST /api/events-list. All events with a repeat type
// other than none share one newly assigned repeat id.
func (h *EventHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req eventListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	events := make([]model.Event, 0, len(req.Events))
	for _, raw := range req.Events {
		var e model.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event"})
			return
		}
		if msg := validateEvent(e); msg != "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
			return
		}
		events = append(events, e)
	}

	created, err := h.eventStore.CreateSeries(r.Context(), events)
	if err != nil {
		h.logger.Error("create events", "count", len(events), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create events"})
		return
	}

	repeatID := ""
	if len(created) > 0 {
		repeatID = created[0].Repeat.ID
	}
	h.broadcast(websocket.NewMessage(websocket.EntitySeries, websocket.ActionCreated, repeatID, map[string]any{"count": len(created)}))
	writeJSON(w, http.StatusCreated, created)
}

// ExpandSeries handles POST /api/recurring-events. The body is a single
// recurring template; its occurrences are generated within the configured
// horizon and cap and stored as one series.
func (h *EventHandler) ExpandSeries(w http.ResponseWriter, r *http.Request) {
	var tmpl model.Event
	if err := json.NewDecoder(r.Body).Decode(&tmpl); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := validateEvent(tmpl); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if tmpl.Repeat.Type == "" || tmpl.Repeat.Type == model.RepeatNone {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "repeat type required"})
		return
	}

	instances, err := recurrence.Generate(tmpl, h.repeat)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid repeat rule"})
		return
	}
	if len(instances) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "repeat endDate is before date"})
		return
	}

	created, err := h.eventStore.CreateSeries(r.Context(), instances)
	if err != nil {
		h.logger.Error("create series", "count", len(instances), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create events"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntitySeries, websocket.ActionCreated, created[0].Repeat.ID, map[string]any{"count": len(created)}))
	writeJSON(w, http.StatusCreated, created)
}

// UpdateList handles PUT /api/events-list. Each body entry is merged onto
// the stored event with the same id; unknown ids are skipped.
func (h *EventHandler) UpdateList(w http.ResponseWriter, r *http.Request) {
	var req eventListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	var merged []model.Event
	for _, raw := range req.Events {
		var ref struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &ref); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event"})
			return
		}
		existing, err := h.eventStore.GetByID(r.Context(), ref.ID)
		if err != nil {
			h.logger.Error("get event", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
			return
		}
		if existing == nil {
			continue
		}
		e, err := mergeEvent(*existing, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event fields"})
			return
		}
		if msg := validateEvent(e); msg != "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
			return
		}
		merged = append(merged, e)
	}
	if len(merged) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	updated, err := h.eventStore.UpdateMany(r.Context(), merged)
	if errors.Is(err, model.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}
	if err != nil {
		h.logger.Error("update events", "count", len(merged), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update events"})
		return
	}

	for _, e := range updated {
		h.broadcast(websocket.NewMessage(websocket.EntityEvent, websocket.ActionUpdated, e.ID, map[string]any{"date": e.Date}))
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *EventHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	var req deleteListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.eventStore.DeleteMany(r.Context(), req.EventIDs); err != nil {
		h.logger.Error("delete events", "count", len(req.EventIDs), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete events"})
		return
	}

	for _, id := range req.EventIDs {
		h.broadcast(websocket.NewMessage(websocket.EntityEvent, websocket.ActionDeleted, id, nil))
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSeries handles PUT /api/recurring-events/{repeatId} and responds with
// the instances as they were before the update.
func (h *EventHandler) UpdateSeries(w http.ResponseWriter, r *http.Request) {
	repeatID := r.PathValue("repeatId")

	var patch model.SeriesPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if patch.Repeat != nil && patch.Repeat.Type != nil && !patch.Repeat.Type.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid repeat type"})
		return
	}

	before, err := h.eventStore.UpdateSeries(r.Context(), repeatID, patch)
	if errors.Is(err, model.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "recurring series not found"})
		return
	}
	if err != nil {
		h.logger.Error("update series", "repeat_id", repeatID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update series"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntitySeries, websocket.ActionUpdated, repeatID, map[string]any{"count": len(before)}))
	writeJSON(w, http.StatusOK, before)
}

func (h *EventHandler) DeleteSeries(w http.ResponseWriter, r *http.Request) {
	repeatID := r.PathValue("repeatId")

	err := h.eventStore.DeleteSeries(r.Context(), repeatID)
	if errors.Is(err, model.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "recurring series not found"})
		return
	}
	if err != nil {
		h.logger.Error("delete series", "repeat_id", repeatID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete series"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntitySeries, websocket.ActionDeleted, repeatID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// ExportICS handles GET /api/events.ics.
func (h *EventHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventStore.List(r.Context())
	if err != nil {
		h.logger.Error("list events", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="daywich.ics"`)
	if err := ical.Export(w, events, ical.Options{Location: h.loc}); err != nil {
		h.logger.Error("export calendar", "error", err)
	}
}
