package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"solmeet/internal/event/models"
	"solmeet/pkg/domain"
	"solmeet/pkg/platform/sentinel"
)

const pgUniqueViolation = "23505"

// PostgresStore persists events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed event store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const eventColumns = `id, organizer, title, description, venue, window_start, window_end, capacity, status, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, event *models.Event) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	query := `INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(event.ID),
		event.Organizer.Key(),
		event.Title,
		event.Description,
		event.Venue,
		event.Window.Start,
		event.Window.End,
		event.Capacity,
		string(event.Status),
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.EventID) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	event, err := scanEvent(s.db.QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) ListByOrganizer(ctx context.Context, organizer domain.Identity) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE organizer = $1 ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, query, organizer.Key())
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return collectEvents(rows)
}

func (s *PostgresStore) ListOpenEndedBefore(ctx context.Context, now time.Time, limit int) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE status = 'open' AND window_end < $1
		ORDER BY window_end
		LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list ended events: %w", err)
	}
	return collectEvents(rows)
}

// Execute locks the row with FOR UPDATE, applies mutate and writes it back.
func (s *PostgresStore) Execute(ctx context.Context, id domain.EventID, mutate Mutator) (*models.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin event execute tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	event, err := s.executeWithTx(ctx, tx, id, mutate)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit event execute: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) executeWithTx(ctx context.Context, tx *sql.Tx, id domain.EventID, mutate Mutator) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	event, err := scanEvent(tx.QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find event for execute: %w", err)
	}

	if err := mutate(event); err != nil {
		return nil, err
	}

	update := `UPDATE events
		SET title = $2, description = $3, venue = $4, window_start = $5, window_end = $6,
		    capacity = $7, status = $8, updated_at = $9
		WHERE id = $1`
	res, err := tx.ExecContext(ctx, update,
		uuid.UUID(event.ID),
		event.Title,
		event.Description,
		event.Venue,
		event.Window.Start,
		event.Window.End,
		event.Capacity,
		string(event.Status),
		event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, sentinel.ErrNotFound
	}
	return event, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		id        uuid.UUID
		organizer string
		status    string
		event     models.Event
	)
	if err := row.Scan(
		&id,
		&organizer,
		&event.Title,
		&event.Description,
		&event.Venue,
		&event.Window.Start,
		&event.Window.End,
		&event.Capacity,
		&status,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return finishEvent(&event, id.String(), organizer, status)
}

func collectEvents(rows *sql.Rows) ([]*models.Event, error) {
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
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

// finishEvent parses the stored text columns shared by SQL backends.
func finishEvent(event *models.Event, id, organizer, status string) (*models.Event, error) {
	eventID, err := domain.ParseEventID(id)
	if err != nil {
		return nil, fmt.Errorf("stored event id: %w", err)
	}
	owner, err := domain.ParseIdentity(organizer)
	if err != nil {
		return nil, fmt.Errorf("stored organizer: %w", err)
	}
	st, err := models.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("stored status: %w", err)
	}
	event.ID = eventID
	event.Organizer = owner
	event.Status = st
	event.Window.Start = event.Window.Start.UTC()
	event.Window.End = event.Window.End.UTC()
	return event, nil
}
