package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"solmeet/internal/ledger/models"
	"solmeet/internal/platform/sqlite"
	"solmeet/pkg/domain"
	"solmeet/pkg/platform/sentinel"
)

// SQLiteStore runs every insert through the single writer, so the
// check-then-insert sequence is serialized across all events.
type SQLiteStore struct {
	db     *sql.DB
	writer *sqlite.Worker
}

func NewSQLite(db *sql.DB, writer *sqlite.Worker) *SQLiteStore {
	return &SQLiteStore{db: db, writer: writer}
}

func (s *SQLiteStore) TryInsert(ctx context.Context, entry models.Entry, capacity int) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	rec, proof := entry.Record, entry.Proof
	eventID := rec.EventID.String()

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var nonceUsed, claimantUsed, count int
		if err := tx.QueryRowContext(ctx, `
			SELECT
				COALESCE(MAX(nonce = ?), 0),
				COALESCE(MAX(claimant = ?), 0),
				COUNT(*)
			FROM claim_records
			WHERE event_id = ?`,
			rec.Nonce[:], rec.Claimant.Key(), eventID,
		).Scan(&nonceUsed, &claimantUsed, &count); err != nil {
			return unavailable("check event ledger", err)
		}
		switch {
		case nonceUsed == 1:
			return ErrNonceConsumed
		case claimantUsed == 1:
			return ErrAlreadyClaimed
		case capacity > 0 && count >= capacity:
			return ErrCapacityReached
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO claim_records (event_id, nonce, claimant, consumed_at)
			VALUES (?, ?, ?, ?)`,
			eventID, rec.Nonce[:], rec.Claimant.Key(), rec.ConsumedAt.UnixNano(),
		); err != nil {
			return unavailable("insert claim record", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO compressed_proofs (event_id, nonce, claimant, proof_digest, issued_at)
			VALUES (?, ?, ?, ?, ?)`,
			eventID, proof.Nonce[:], proof.Claimant.Key(), proof.Digest[:], proof.IssuedAt.UnixNano(),
		); err != nil {
			return unavailable("insert compressed proof", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) || errors.Is(err, sentinel.ErrUnavailable) {
			return err
		}
		return unavailable("ledger insert", err)
	}
	return nil
}

func (s *SQLiteStore) CountByEvent(ctx context.Context, eventID domain.EventID) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claim_records WHERE event_id = ?`, eventID.String(),
	).Scan(&n); err != nil {
		return 0, unavailable("count claims", err)
	}
	return n, nil
}

const sqliteEntrySelect = `
	SELECT r.nonce, r.claimant, r.consumed_at, p.proof_digest, p.issued_at
	FROM claim_records r
	JOIN compressed_proofs p ON p.event_id = r.event_id AND p.nonce = r.nonce`

func (s *SQLiteStore) ListByEvent(ctx context.Context, eventID domain.EventID) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		sqliteEntrySelect+` WHERE r.event_id = ? ORDER BY r.consumed_at, r.nonce`, eventID.String())
	if err != nil {
		return nil, unavailable("list claims", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		entry, err := scanSQLiteEntry(rows, eventID)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate claims", err)
	}
	return entries, nil
}

func (s *SQLiteStore) FindByClaimant(ctx context.Context, eventID domain.EventID, claimant domain.Identity) (*models.Entry, error) {
	return s.findOne(ctx, eventID, sqliteEntrySelect+` WHERE r.event_id = ? AND r.claimant = ?`,
		eventID.String(), claimant.Key())
}

func (s *SQLiteStore) FindByNonce(ctx context.Context, eventID domain.EventID, nonce domain.Nonce) (*models.Entry, error) {
	return s.findOne(ctx, eventID, sqliteEntrySelect+` WHERE r.event_id = ? AND r.nonce = ?`,
		eventID.String(), nonce[:])
}

func (s *SQLiteStore) findOne(ctx context.Context, eventID domain.EventID, query string, args ...any) (*models.Entry, error) {
	entry, err := scanSQLiteEntry(s.db.QueryRowContext(ctx, query, args...), eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, unavailable("find claim", err)
	}
	return entry, nil
}

func scanSQLiteEntry(row rowScanner, eventID domain.EventID) (*models.Entry, error) {
	var (
		nonce, digest      []byte
		claimant           string
		consumedAt, issued int64
		entry              models.Entry
	)
	if err := row.Scan(&nonce, &claimant, &consumedAt, &digest, &issued); err != nil {
		return nil, err
	}
	entry.Record.ConsumedAt = time.Unix(0, consumedAt)
	entry.Proof.IssuedAt = time.Unix(0, issued)
	return assembleEntry(&entry, eventID, nonce, claimant, digest)
}
