package models

import (
	"time"

	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
)

// Event is the organizer-owned record that credentials and claims refer to.
// Capacity zero means unlimited.
type Event struct {
	ID          domain.EventID
	Organizer   domain.Identity
	Title       string
	Description string
	Venue       string
	Window      Window
	Capacity    int
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewEventParams carries validated creation input.
type NewEventParams struct {
	ID          domain.EventID
	Organizer   domain.Identity
	Title       string
	Description string
	Venue       string
	Window      Window
	Capacity    int
	Draft       bool
}

func NewEvent(p NewEventParams, now time.Time) (*Event, error) {
	if p.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event id is required")
	}
	if p.Organizer.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event organizer is required")
	}
	if p.Title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event title cannot be empty")
	}
	if p.Capacity < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event capacity must be positive when set")
	}
	status := StatusOpen
	if p.Draft {
		status = StatusDraft
	}
	return &Event{
		ID:          p.ID,
		Organizer:   p.Organizer,
		Title:       p.Title,
		Description: p.Description,
		Venue:       p.Venue,
		Window:      p.Window,
		Capacity:    p.Capacity,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (e *Event) IsOpen() bool { return e.Status == StatusOpen }

// HasCapacity reports whether a capacity limit is set.
func (e *Event) HasCapacity() bool { return e.Capacity > 0 }

// IsOrganizer reports whether caller created the event.
func (e *Event) IsOrganizer(caller domain.Identity) bool {
	return e.Organizer.Equal(caller)
}

// TransitionTo moves the event along the lifecycle table.
func (e *Event) TransitionTo(to Status, now time.Time) error {
	if !e.Status.CanTransitionTo(to) {
		return dErrors.Newf(dErrors.CodeEventClosed, "event cannot move from %s to %s", e.Status, to)
	}
	e.Status = to
	e.UpdatedAt = now
	return nil
}

// ExpireIfEnded closes an open event whose window is over. It reports
// whether a transition happened.
func (e *Event) ExpireIfEnded(now time.Time) bool {
	if e.Status != StatusOpen || !e.Window.EndedBy(now) {
		return false
	}
	e.Status = StatusClosed
	e.UpdatedAt = now
	return true
}

// Clone returns a copy safe to hand across store boundaries.
func (e *Event) Clone() *Event {
	c := *e
	return &c
}
