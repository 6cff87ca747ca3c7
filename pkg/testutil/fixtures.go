package testutil

import (
	"time"

	"github.com/google/uuid"

	eventmodels "solmeet/internal/event/models"
	"solmeet/pkg/domain"
)

// TestIDs provides fixed identifiers for deterministic test data.
var TestIDs = struct {
	EventID1 domain.EventID
	EventID2 domain.EventID
	Wallet1  string
	Wallet2  string
	Anon1    string
	Anon2    string
}{
	EventID1: domain.EventID(uuid.MustParse("0190c2a0-0000-7000-8000-000000000001")),
	EventID2: domain.EventID(uuid.MustParse("0190c2a0-0000-7000-8000-000000000002")),
	Wallet1:  "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
	Wallet2:  "7EcDhSYGxXyscszYEp35KHN8vvw3svAuLKTzXwCFLtV",
	Anon1:    "tg-user-1",
	Anon2:    "tg-user-2",
}

// MustWallet builds a wallet identity or panics.
func MustWallet(pubkey string) domain.Identity {
	id, err := domain.Wallet(pubkey)
	if err != nil {
		panic(err)
	}
	return id
}

// MustAnonymous builds an anonymous identity or panics.
func MustAnonymous(token string) domain.Identity {
	id, err := domain.Anonymous(token)
	if err != nil {
		panic(err)
	}
	return id
}

// EventBuilder provides a fluent interface for building test events.
// It bypasses NewEvent so tests can build states the constructor refuses.
type EventBuilder struct {
	event *eventmodels.Event
}

// NewEventBuilder creates an open, unlimited event whose one-hour window
// starts at now.
func NewEventBuilder(now time.Time) *EventBuilder {
	id, err := domain.NewEventID()
	if err != nil {
		panic(err)
	}
	return &EventBuilder{
		event: &eventmodels.Event{
			ID:        id,
			Organizer: MustWallet(TestIDs.Wallet1),
			Title:     "Solana Builders Meetup",
			Venue:     "Hall B",
			Window:    eventmodels.Window{Start: now, End: now.Add(time.Hour)},
			Status:    eventmodels.StatusOpen,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (b *EventBuilder) WithID(id domain.EventID) *EventBuilder {
	b.event.ID = id
	return b
}

func (b *EventBuilder) WithOrganizer(organizer domain.Identity) *EventBuilder {
	b.event.Organizer = organizer
	return b
}

func (b *EventBuilder) WithTitle(title string) *EventBuilder {
	b.event.Title = title
	return b
}

func (b *EventBuilder) WithWindow(start, end time.Time) *EventBuilder {
	b.event.Window = eventmodels.Window{Start: start, End: end}
	return b
}

func (b *EventBuilder) WithCapacity(capacity int) *EventBuilder {
	b.event.Capacity = capacity
	return b
}

func (b *EventBuilder) WithStatus(status eventmodels.Status) *EventBuilder {
	b.event.Status = status
	return b
}

func (b *EventBuilder) Build() *eventmodels.Event {
	return b.event
}
