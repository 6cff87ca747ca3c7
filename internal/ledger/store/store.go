// Package store implements the proof ledger backends.
//
// TryInsert is the only write and must be linearizable per event: of any set
// of concurrent inserts for one event, each nonce and each claimant is
// accepted at most once and the committed count never exceeds capacity.
// Conflict checks run in a fixed order: nonce, then claimant, then capacity.
package store

import (
	"context"
	"fmt"

	"solmeet/internal/ledger/models"
	"solmeet/pkg/domain"
	"solmeet/pkg/platform/sentinel"
)

var (
	ErrNonceConsumed   = fmt.Errorf("%w: credential nonce already consumed", sentinel.ErrConflict)
	ErrAlreadyClaimed  = fmt.Errorf("%w: claimant already holds a proof for this event", sentinel.ErrConflict)
	ErrCapacityReached = fmt.Errorf("%w: event capacity reached", sentinel.ErrConflict)
)

// Store is the proof ledger. Capacity zero means unlimited.
type Store interface {
	TryInsert(ctx context.Context, entry models.Entry, capacity int) error
	CountByEvent(ctx context.Context, eventID domain.EventID) (int, error)
	ListByEvent(ctx context.Context, eventID domain.EventID) ([]models.Entry, error)
	FindByClaimant(ctx context.Context, eventID domain.EventID, claimant domain.Identity) (*models.Entry, error)
	FindByNonce(ctx context.Context, eventID domain.EventID, nonce domain.Nonce) (*models.Entry, error)
}

// unavailable marks an infrastructure failure so callers can retry.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}
