package service

import (
	"context"

	"solmeet/internal/audit"
	"solmeet/internal/credential"
	eventmodels "solmeet/internal/event/models"
	ledgermodels "solmeet/internal/ledger/models"
	"solmeet/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// EventReader resolves the event a credential names.
type EventReader interface {
	FindByID(ctx context.Context, id domain.EventID) (*eventmodels.Event, error)
}

// Verifier checks a decoded credential's issuer signature.
type Verifier interface {
	Verify(cred *credential.ClaimCredential) error
}

// Ledger is the read side of the proof ledger.
type Ledger interface {
	CountByEvent(ctx context.Context, eventID domain.EventID) (int, error)
	ListByEvent(ctx context.Context, eventID domain.EventID) ([]ledgermodels.Entry, error)
	FindByClaimant(ctx context.Context, eventID domain.EventID, claimant domain.Identity) (*ledgermodels.Entry, error)
	FindByNonce(ctx context.Context, eventID domain.EventID, nonce domain.Nonce) (*ledgermodels.Entry, error)
}

// Gateway finalizes and commits an accepted claim.
type Gateway interface {
	Commit(ctx context.Context, record ledgermodels.ClaimRecord, capacity int) (ledgermodels.Entry, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
