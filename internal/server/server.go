package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/daywich/internal/handler"
	"github.com/dukerupert/daywich/internal/middleware"
	"github.com/dukerupert/daywich/internal/notify"
	"github.com/dukerupert/daywich/internal/push"
	"github.com/dukerupert/daywich/internal/recurrence"
	"github.com/dukerupert/daywich/internal/store"
	ws "github.com/dukerupert/daywich/internal/websocket"
)

// Options configures the optional parts of the server.
type Options struct {
	Push     push.Config
	Notify   notify.Options
	Repeat   recurrence.Options
	Location *time.Location
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	eventH      *handler.EventHandler
	pushH       *handler.PushHandler
	eventStore  *store.EventStore
	pushStore   *store.PushStore
	pushService *push.Service
	checker     *notify.Checker
	logger      *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Notify.Location == nil {
		opts.Notify.Location = opts.Location
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	eventStore := store.NewEventStore(db)
	pushSt := store.NewPushStore(db)

	// Push notification service
	var pushSvc *push.Service
	var pushH *handler.PushHandler
	if opts.Push.Enabled() {
		pushSvc = push.NewService(opts.Push, pushSt, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushSt, pushSvc, logger.With("component", "push_handler"))
	}

	sinks := []notify.Sink{hubSink(hub)}
	if pushSvc != nil {
		sinks = append(sinks, pushSink(pushSvc))
	}
	checker := notify.NewChecker(eventStore, logger.With("component", "notify"), opts.Notify, sinks...)

	return &Server{
		db:          db,
		hub:         hub,
		eventH:      handler.NewEventHandler(eventStore, hub, logger.With("component", "events"), opts.Location, opts.Repeat),
		pushH:       pushH,
		eventStore:  eventStore,
		pushStore:   pushSt,
		pushService: pushSvc,
		checker:     checker,
		logger:      logger,
	}
}

// hubSink forwards reminders to every connected browser.
func hubSink(hub *ws.Hub) notify.Sink {
	return notify.SinkFunc(func(_ context.Context, n notify.Notification) error {
		hub.Broadcast(ws.NewMessage(ws.EntityEvent, ws.ActionNotification, n.EventID, map[string]any{
			"title":            n.Title,
			"date":             n.Date,
			"startTime":        n.Start,
			"notificationTime": n.Minutes,
			"message":          n.Message,
		}))
		return nil
	})
}

func pushSink(svc *push.Service) notify.Sink {
	return notify.SinkFunc(func(ctx context.Context, n notify.Notification) error {
		_, err := svc.Broadcast(ctx, push.Payload{
			Title: n.Title,
			Body:  n.Message,
			URL:   "/",
			Tag:   "event-" + n.EventID,
		})
		return err
	})
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// EventStore returns the event store.
func (s *Server) EventStore() *store.EventStore {
	return s.eventStore
}

// Checker returns the notification checker. The caller starts and stops it.
func (s *Server) Checker() *notify.Checker {
	return s.checker
}

// PushService returns the push service, or nil when VAPID keys are not configured.
func (s *Server) PushService() *push.Service {
	return s.pushService
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	s.registerRoutes(mux)

	// Apply request logging and panic recovery
	var h http.Handler = mux
	h = middleware.Recover(s.logger.With("component", "http"))(h)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Event API routes
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("GET /api/events.ics", s.eventH.ExportICS)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.HandleFunc("PUT /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)

	// Batch routes
	mux.HandleFunc("POST /api/events-list", s.eventH.CreateList)
	mux.HandleFunc("PUT /api/events-list", s.eventH.UpdateList)
	mux.HandleFunc("DELETE /api/events-list", s.eventH.DeleteList)

	// Series routes
	mux.HandleFunc("POST /api/recurring-events", s.eventH.ExpandSeries)
	mux.HandleFunc("PUT /api/recurring-events/{repeatId}", s.eventH.UpdateSeries)
	mux.HandleFunc("DELETE /api/recurring-events/{repeatId}", s.eventH.DeleteSeries)

	// Push notification API routes
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)
	}

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
