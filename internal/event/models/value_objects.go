package models

import (
	"time"

	dErrors "solmeet/pkg/domain-errors"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

// transitions is the complete lifecycle table. Anything absent is rejected.
var transitions = map[Status][]Status{
	StatusDraft: {StatusOpen, StatusCancelled},
	StatusOpen:  {StatusClosed, StatusCancelled},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusOpen, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether the lifecycle table allows s -> to.
func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ParseStatus validates a persisted status value.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "unknown event status: "+s)
	}
	return status, nil
}

// Window is the claim window. Both ends are inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow rejects windows that are empty, inverted or already over.
func NewWindow(start, end, now time.Time) (Window, error) {
	if start.IsZero() || end.IsZero() {
		return Window{}, dErrors.New(dErrors.CodeInvalidWindow, "claim window start and end are required")
	}
	if !start.Before(end) {
		return Window{}, dErrors.New(dErrors.CodeInvalidWindow, "claim window must start before it ends")
	}
	if !end.After(now) {
		return Window{}, dErrors.New(dErrors.CodeInvalidWindow, "claim window is in the past")
	}
	return Window{Start: start.UTC(), End: end.UTC()}, nil
}

// Contains reports whether t lies in [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// EndedBy reports whether the window closed strictly before t.
func (w Window) EndedBy(t time.Time) bool {
	return t.After(w.End)
}
