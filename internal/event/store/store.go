// Package store persists events.
//
// Error contract shared by every backend:
//   - ErrNotFound when the event does not exist
//   - ErrConflict when Create hits an existing id
//   - errors returned by an Execute mutator are passed through untouched and
//     nothing is persisted
//   - wrapped errors for infrastructure failures
package store

import (
	"context"
	"time"

	"solmeet/internal/event/models"
	"solmeet/pkg/domain"
)

// Mutator edits an event in place inside Execute's atomic unit.
type Mutator func(*models.Event) error

type Store interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id domain.EventID) (*models.Event, error)
	ListByOrganizer(ctx context.Context, organizer domain.Identity) ([]*models.Event, error)
	// ListOpenEndedBefore returns open events whose window ended before now,
	// oldest window end first.
	ListOpenEndedBefore(ctx context.Context, now time.Time, limit int) ([]*models.Event, error)
	// Execute loads the event under lock, applies mutate and persists the
	// result atomically.
	Execute(ctx context.Context, id domain.EventID, mutate Mutator) (*models.Event, error)
}
