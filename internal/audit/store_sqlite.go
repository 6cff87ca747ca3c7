package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"solmeet/internal/platform/sqlite"
)

// SQLiteStore writes audit rows through the shared single writer so they
// queue behind ledger inserts instead of failing with SQLITE_BUSY.
type SQLiteStore struct {
	db     *sql.DB
	writer *sqlite.Worker
}

func NewSQLiteStore(db *sql.DB, writer *sqlite.Worker) *SQLiteStore {
	return &SQLiteStore{db: db, writer: writer}
}

func (s *SQLiteStore) Append(ctx context.Context, event Event) error {
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO audit_events (occurred_at, event_id, actor, action, outcome, reason, request_id, device)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			event.Timestamp.UnixNano(),
			event.EventID,
			event.Actor,
			string(event.Action),
			event.Outcome,
			event.Reason,
			event.RequestID,
			event.Device,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListByEvent(ctx context.Context, eventID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT occurred_at, event_id, actor, action, outcome, reason, request_id, device
		FROM audit_events
		WHERE event_id = ?
		ORDER BY occurred_at, id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e          Event
			action     string
			occurredAt int64
		)
		if err := rows.Scan(&occurredAt, &e.EventID, &e.Actor, &action, &e.Outcome, &e.Reason, &e.RequestID, &e.Device); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Timestamp = time.Unix(0, occurredAt).UTC()
		e.Action = Action(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
