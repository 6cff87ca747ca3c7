package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"solmeet/internal/event/models"
	"solmeet/internal/platform/sqlite"
	"solmeet/pkg/domain"
	"solmeet/pkg/platform/sentinel"
)

// SQLiteStore persists events in the embedded database. Reads go straight to
// the pool; writes are sequenced through the shared writer.
type SQLiteStore struct {
	db     *sql.DB
	writer *sqlite.Worker
}

func NewSQLite(db *sql.DB, writer *sqlite.Worker) *SQLiteStore {
	return &SQLiteStore{db: db, writer: writer}
}

func (s *SQLiteStore) Create(ctx context.Context, event *models.Event) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO events (`+eventColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			event.ID.String(),
			event.Organizer.Key(),
			event.Title,
			event.Description,
			event.Venue,
			event.Window.Start.UnixNano(),
			event.Window.End.UnixNano(),
			event.Capacity,
			string(event.Status),
			event.CreatedAt.UnixNano(),
			event.UpdatedAt.UnixNano(),
		)
		if err != nil {
			if sqlite.IsConstraint(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("create event: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) FindByID(ctx context.Context, id domain.EventID) (*models.Event, error) {
	event, err := scanSQLiteEvent(s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return event, nil
}

func (s *SQLiteStore) ListByOrganizer(ctx context.Context, organizer domain.Identity) ([]*models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE organizer = ? ORDER BY created_at, id`, organizer.Key())
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return collectSQLiteEvents(rows)
}

func (s *SQLiteStore) ListOpenEndedBefore(ctx context.Context, now time.Time, limit int) ([]*models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		WHERE status = 'open' AND window_end < ?
		ORDER BY window_end
		LIMIT ?`, now.UnixNano(), limit)
	if err != nil {
		return nil, fmt.Errorf("list ended events: %w", err)
	}
	return collectSQLiteEvents(rows)
}

func (s *SQLiteStore) Execute(ctx context.Context, id domain.EventID, mutate Mutator) (*models.Event, error) {
	var result *models.Event
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		event, err := scanSQLiteEvent(tx.QueryRowContext(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = ?`, id.String()))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("find event for execute: %w", err)
		}
		if err := mutate(event); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE events
			SET title = ?, description = ?, venue = ?, window_start = ?, window_end = ?,
			    capacity = ?, status = ?, updated_at = ?
			WHERE id = ?`,
			event.Title,
			event.Description,
			event.Venue,
			event.Window.Start.UnixNano(),
			event.Window.End.UnixNano(),
			event.Capacity,
			string(event.Status),
			event.UpdatedAt.UnixNano(),
			event.ID.String(),
		); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		result = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanSQLiteEvent(row rowScanner) (*models.Event, error) {
	var (
		id, organizer, status            string
		start, end, createdAt, updatedAt int64
		event                            models.Event
	)
	if err := row.Scan(
		&id,
		&organizer,
		&event.Title,
		&event.Description,
		&event.Venue,
		&start,
		&end,
		&event.Capacity,
		&status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	event.Window.Start = time.Unix(0, start)
	event.Window.End = time.Unix(0, end)
	event.CreatedAt = time.Unix(0, createdAt).UTC()
	event.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return finishEvent(&event, id, organizer, status)
}

func collectSQLiteEvents(rows *sql.Rows) ([]*models.Event, error) {
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanSQLiteEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
