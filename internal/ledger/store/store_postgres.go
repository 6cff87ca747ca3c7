package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"solmeet/internal/ledger/models"
	"solmeet/pkg/domain"
	"solmeet/pkg/platform/sentinel"
)

const (
	pgUniqueViolation = "23505"

	constraintNonce    = "claim_records_pkey"
	constraintClaimant = "claim_records_event_claimant_key"
)

// PostgresStore serializes inserts per event with a transaction-scoped
// advisory lock; the unique constraints back the same invariants.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) TryInsert(ctx context.Context, entry models.Entry, capacity int) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	rec, proof := entry.Record, entry.Proof

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin ledger tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rec.EventID.String()); err != nil {
		return unavailable("lock event ledger", err)
	}

	var nonceUsed, claimantUsed bool
	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT
			COALESCE(bool_or(nonce = $2), false),
			COALESCE(bool_or(claimant = $3), false),
			COUNT(*)
		FROM claim_records
		WHERE event_id = $1`,
		uuid.UUID(rec.EventID), rec.Nonce[:], rec.Claimant.Key(),
	).Scan(&nonceUsed, &claimantUsed, &count)
	if err != nil {
		return unavailable("check event ledger", err)
	}
	switch {
	case nonceUsed:
		return ErrNonceConsumed
	case claimantUsed:
		return ErrAlreadyClaimed
	case capacity > 0 && count >= capacity:
		return ErrCapacityReached
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO claim_records (event_id, nonce, claimant, consumed_at)
		VALUES ($1, $2, $3, $4)`,
		uuid.UUID(rec.EventID), rec.Nonce[:], rec.Claimant.Key(), rec.ConsumedAt,
	); err != nil {
		return mapInsertErr("insert claim record", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO compressed_proofs (event_id, nonce, claimant, proof_digest, issued_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(proof.EventID), proof.Nonce[:], proof.Claimant.Key(), proof.Digest[:], proof.IssuedAt,
	); err != nil {
		return mapInsertErr("insert compressed proof", err)
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit ledger tx", err)
	}
	return nil
}

func mapInsertErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case constraintNonce:
			return ErrNonceConsumed
		case constraintClaimant:
			return ErrAlreadyClaimed
		}
	}
	return unavailable(op, err)
}

func (s *PostgresStore) CountByEvent(ctx context.Context, eventID domain.EventID) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claim_records WHERE event_id = $1`, uuid.UUID(eventID),
	).Scan(&n); err != nil {
		return 0, unavailable("count claims", err)
	}
	return n, nil
}

const entrySelect = `
	SELECT r.event_id, r.nonce, r.claimant, r.consumed_at, p.proof_digest, p.issued_at
	FROM claim_records r
	JOIN compressed_proofs p ON p.event_id = r.event_id AND p.nonce = r.nonce`

func (s *PostgresStore) ListByEvent(ctx context.Context, eventID domain.EventID) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		entrySelect+` WHERE r.event_id = $1 ORDER BY r.consumed_at, r.nonce`, uuid.UUID(eventID))
	if err != nil {
		return nil, unavailable("list claims", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
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

func (s *PostgresStore) FindByClaimant(ctx context.Context, eventID domain.EventID, claimant domain.Identity) (*models.Entry, error) {
	return s.findOne(ctx, entrySelect+` WHERE r.event_id = $1 AND r.claimant = $2`,
		uuid.UUID(eventID), claimant.Key())
}

func (s *PostgresStore) FindByNonce(ctx context.Context, eventID domain.EventID, nonce domain.Nonce) (*models.Entry, error) {
	return s.findOne(ctx, entrySelect+` WHERE r.event_id = $1 AND r.nonce = $2`,
		uuid.UUID(eventID), nonce[:])
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*models.Entry, error) {
	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, unavailable("find claim", err)
	}
	return entry, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		eventID  uuid.UUID
		nonce    []byte
		claimant string
		digest   []byte
		entry    models.Entry
	)
	if err := row.Scan(&eventID, &nonce, &claimant, &entry.Record.ConsumedAt, &digest, &entry.Proof.IssuedAt); err != nil {
		return nil, err
	}
	return assembleEntry(&entry, domain.EventID(eventID), nonce, claimant, digest)
}

// assembleEntry fills the identity columns shared by the SQL backends.
func assembleEntry(entry *models.Entry, eventID domain.EventID, nonce []byte, claimant string, digest []byte) (*models.Entry, error) {
	if len(nonce) != domain.NonceSize {
		return nil, fmt.Errorf("stored nonce has %d bytes", len(nonce))
	}
	if len(digest) != models.DigestSize {
		return nil, fmt.Errorf("stored digest has %d bytes", len(digest))
	}
	who, err := domain.ParseIdentity(claimant)
	if err != nil {
		return nil, fmt.Errorf("stored claimant: %w", err)
	}
	entry.Record.EventID = eventID
	entry.Record.Claimant = who
	copy(entry.Record.Nonce[:], nonce)
	entry.Record.ConsumedAt = entry.Record.ConsumedAt.UTC()
	entry.Proof.EventID = eventID
	entry.Proof.Claimant = who
	entry.Proof.Nonce = entry.Record.Nonce
	copy(entry.Proof.Digest[:], digest)
	entry.Proof.IssuedAt = entry.Proof.IssuedAt.UTC()
	return entry, nil
}
