// Package notify fires a notification once for each event whose start is
// within its notification lead time.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dukerupert/daywich/internal/model"
)

const DefaultInterval = time.Second

// ErrRunning is returned by Start when the checker is already scheduled.
var ErrRunning = errors.New("notification checker already running")

// Notification is one due reminder.
type Notification struct {
	EventID string `json:"eventId"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Start   string `json:"startTime"`
	Minutes int    `json:"notificationTime"`
	Message string `json:"message"`
}

// Message renders the reminder text shown to the user.
func Message(minutes int, title string) string {
	return fmt.Sprintf("%d분 후 %s 일정이 시작됩니다.", minutes, title)
}

// Source supplies the events to check.
type Source interface {
	List(ctx context.Context) ([]model.Event, error)
}

// Sink delivers a notification.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

type SinkFunc func(ctx context.Context, n Notification) error

func (f SinkFunc) Deliver(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// IsDue reports whether e starts after now and no more than its
// notification time later.
func IsDue(e model.Event, now time.Time) bool {
	start, err := e.StartAt(now.Location())
	if err != nil {
		return false
	}
	until := start.Sub(now)
	return until > 0 && until <= time.Duration(e.NotificationTime)*time.Minute
}

type key struct {
	id, date, start string
	minutes         int
}

func keyOf(e model.Event) key {
	return key{id: e.ID, date: e.Date, start: e.StartTime, minutes: e.NotificationTime}
}

type Options struct {
	Interval time.Duration
	Location *time.Location
	Now      func() time.Time
}

// Checker polls Source on a cron schedule. Each event instance fires at most
// once per process; moving or retiming an event makes it eligible again.
type Checker struct {
	mu     sync.Mutex
	source Source
	sinks  []Sink
	fired  map[key]struct{}
	opts   Options
	cron   *cron.Cron
	stop   chan struct{}
	logger *slog.Logger
}

func NewChecker(source Source, logger *slog.Logger, opts Options, sinks ...Sink) *Checker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Checker{
		source: source,
		sinks:  sinks,
		fired:  make(map[key]struct{}),
		opts:   opts,
		logger: logger,
	}
}

// Check runs one poll and returns the notifications it fired.
func (c *Checker) Check(ctx context.Context) []Notification {
	events, err := c.source.List(ctx)
	if err != nil {
		c.logger.Error("list events", "error", err)
		return nil
	}
	now := c.opts.Now().In(c.opts.Location)

	var due []Notification
	c.mu.Lock()
	for _, e := range events {
		if !IsDue(e, now) {
			continue
		}
		k := keyOf(e)
		if _, ok := c.fired[k]; ok {
			continue
		}
		c.fired[k] = struct{}{}
		due = append(due, Notification{
			EventID: e.ID,
			Title:   e.Title,
			Date:    e.Date,
			Start:   e.StartTime,
			Minutes: e.NotificationTime,
			Message: Message(e.NotificationTime, e.Title),
		})
	}
	c.mu.Unlock()

	for _, n := range due {
		c.logger.Info("notification due", "event_id", n.EventID, "minutes", n.Minutes)
		for _, s := range c.sinks {
			if err := s.Deliver(ctx, n); err != nil {
				c.logger.Error("deliver notification", "event_id", n.EventID, "error", err)
			}
		}
	}
	return due
}

// Start schedules Check every Interval until Stop is called or ctx ends.
func (c *Checker) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return ErrRunning
	}

	logger := cronLogger{c.logger}
	cr := cron.New(
		cron.WithLocation(c.opts.Location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	schedule := fmt.Sprintf("@every %s", c.opts.Interval)
	if _, err := cr.AddFunc(schedule, func() { c.Check(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}

	stop := make(chan struct{})
	c.cron, c.stop = cr, stop
	cr.Start()
	c.logger.Info("notification checker started", "interval", c.opts.Interval)

	go func() {
		select {
		case <-ctx.Done():
			c.Stop()
		case <-stop:
		}
	}()
	return nil
}

// Stop halts the schedule and waits for a running check to finish. It is
// safe to call more than once; Start may be called again afterwards.
func (c *Checker) Stop() {
	c.mu.Lock()
	cr, stop := c.cron, c.stop
	c.cron, c.stop = nil, nil
	c.mu.Unlock()

	if cr == nil {
		return
	}
	close(stop)
	<-cr.Stop().Done()
}

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
