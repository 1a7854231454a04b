package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/daywich/internal/model"
)

const eventColumns = `id, title, description, location, category, date, start_time, end_time,
	repeat_type, repeat_interval, repeat_end_date, repeat_id, notification_time`

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (model.Event, error) {
	var e model.Event
	var repeatType string
	var repeatID sql.NullString
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.Category, &e.Date, &e.StartTime, &e.EndTime,
		&repeatType, &e.Repeat.Interval, &e.Repeat.EndDate, &repeatID, &e.NotificationTime)
	if err != nil {
		return model.Event{}, err
	}
	e.Repeat.Type = model.RepeatType(repeatType)
	if repeatID.Valid {
		e.Repeat.ID = repeatID.String
	}
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullableRepeatID(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}

func repeatType(t model.RepeatType) string {
	if t == "" {
		return string(model.RepeatNone)
	}
	return string(t)
}

func insertEvent(ctx context.Context, x execer, e model.Event) error {
	_, err := x.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Description, e.Location, e.Category, e.Date, e.StartTime, e.EndTime,
		repeatType(e.Repeat.Type), e.Repeat.Interval, e.Repeat.EndDate, nullableRepeatID(e.Repeat.ID), e.NotificationTime,
	)
	return err
}

func updateEvent(ctx context.Context, x execer, id string, e model.Event) (bool, error) {
	result, err := x.ExecContext(ctx,
		`UPDATE events
		 SET title = ?, description = ?, location = ?, category = ?, date = ?, start_time = ?, end_time = ?,
		     repeat_type = ?, repeat_interval = ?, repeat_end_date = ?, repeat_id = ?, notification_time = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		e.Title, e.Description, e.Location, e.Category, e.Date, e.StartTime, e.EndTime,
		repeatType(e.Repeat.Type), e.Repeat.Interval, e.Repeat.EndDate, nullableRepeatID(e.Repeat.ID), e.NotificationTime,
		id,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns every event ordered by date and start time.
func (s *EventStore) List(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY date ASC, start_time ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return scanEvents(rows)
}

// ListSeries returns the instances sharing repeatID, in date order.
func (s *EventStore) ListSeries(ctx context.Context, repeatID string) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE repeat_id = ? ORDER BY date ASC`, repeatID)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	return scanEvents(rows)
}

func (s *EventStore) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	return &e, nil
}

// Create stores e under a new id. A repeat id already on e is kept.
func (s *EventStore) Create(ctx context.Context, e model.Event) (*model.Event, error) {
	e.ID = uuid.NewString()
	if err := insertEvent(ctx, s.db, e); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return s.GetByID(ctx, e.ID)
}

// Update replaces the stored fields of the event with id.
func (s *EventStore) Update(ctx context.Context, id string, e model.Event) (*model.Event, error) {
	ok, err := updateEvent(ctx, s.db, id, e)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if !ok {
		return nil, model.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *EventStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// CreateSeries stores a generated batch in one transaction. Every event whose
// repeat type is not none gets the same newly assigned repeat id.
func (s *EventStore) CreateSeries(ctx context.Context, events []model.Event) ([]model.Event, error) {
	repeatID := uuid.NewString()

	created := make([]model.Event, 0, len(events))
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, e := range events {
			e.ID = uuid.NewString()
			if e.Repeat.Type != model.RepeatNone && e.Repeat.Type != "" {
				e.Repeat.ID = repeatID
			} else {
				e.Repeat.ID = ""
			}
			if err := insertEvent(ctx, tx, e); err != nil {
				return fmt.Errorf("insert series event: %w", err)
			}
			created = append(created, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateMany replaces each event by id in one transaction. Ids that do not
// exist are skipped; if none matched it returns model.ErrNotFound.
func (s *EventStore) UpdateMany(ctx context.Context, events []model.Event) ([]model.Event, error) {
	var updated []model.Event
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, e := range events {
			ok, err := updateEvent(ctx, tx, e.ID, e)
			if err != nil {
				return fmt.Errorf("update event %s: %w", e.ID, err)
			}
			if ok {
				updated = append(updated, e)
			}
		}
		if len(updated) == 0 {
			return model.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteMany removes the events with the given ids. Unknown ids are ignored.
func (s *EventStore) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	return nil
}

// UpdateSeries applies patch to every instance of the series in one
// transaction and returns the instances as they were before the change.
func (s *EventStore) UpdateSeries(ctx context.Context, repeatID string, patch model.SeriesPatch) ([]model.Event, error) {
	var before []model.Event
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT `+eventColumns+` FROM events WHERE repeat_id = ? ORDER BY date ASC`, repeatID)
		if err != nil {
			return fmt.Errorf("query series: %w", err)
		}
		before, err = scanEvents(rows)
		if err != nil {
			return err
		}
		if len(before) == 0 {
			return model.ErrNotFound
		}

		for _, e := range before {
			if _, err := updateEvent(ctx, tx, e.ID, patch.Apply(e)); err != nil {
				return fmt.Errorf("update series event %s: %w", e.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return before, nil
}

func (s *EventStore) DeleteSeries(ctx context.Context, repeatID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE repeat_id = ?", repeatID)
	if err != nil {
		return fmt.Errorf("delete series: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete series: %w", err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *EventStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
