package handler

import (
	"time"

	"solmeet/internal/event/service"
	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
	s "solmeet/pkg/string"
	v "solmeet/pkg/validation"
)

// CreateEventRequest is the organizer's event definition.
type CreateEventRequest struct {
	Title       string    `json:"title" validate:"required,notblank"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	WindowStart time.Time `json:"window_start" validate:"required"`
	WindowEnd   time.Time `json:"window_end" validate:"required"`
	Capacity    int       `json:"capacity" validate:"min=0"`
	Draft       bool      `json:"draft"`
}

func (r *CreateEventRequest) Normalize() {
	if r == nil {
		return
	}
	s.TrimStrings(&r.Title, &r.Description, &r.Venue)
}

func (r *CreateEventRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return v.Validate(r)
}

func (r *CreateEventRequest) ToCommand() service.CreateEventCommand {
	return service.CreateEventCommand{
		Title:       r.Title,
		Description: r.Description,
		Venue:       r.Venue,
		WindowStart: r.WindowStart,
		WindowEnd:   r.WindowEnd,
		Capacity:    r.Capacity,
		Draft:       r.Draft,
	}
}

// IssueCredentialsRequest asks for Count anonymous credentials, or one
// credential per entry of SubjectHints ("wallet:<pubkey>" / "anonymous:<token>").
type IssueCredentialsRequest struct {
	Count        int      `json:"count" validate:"min=0"`
	SubjectHints []string `json:"subject_hints" validate:"max=500,unique,dive,identity"`
	TTLSeconds   int      `json:"ttl_seconds" validate:"min=0"`

	hints []domain.Identity
}

func (r *IssueCredentialsRequest) Normalize() {
	if r == nil {
		return
	}
	s.TrimSlice(r.SubjectHints)
	if r.Count == 0 && len(r.SubjectHints) == 0 {
		r.Count = 1
	}
}

func (r *IssueCredentialsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := v.Validate(r); err != nil {
		return err
	}
	r.hints = make([]domain.Identity, 0, len(r.SubjectHints))
	for _, raw := range r.SubjectHints {
		id, err := domain.ParseIdentity(raw)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "subject_hints must be kind:value identities")
		}
		r.hints = append(r.hints, id)
	}
	return nil
}

func (r *IssueCredentialsRequest) ToCommand() service.IssueCredentialsCommand {
	return service.IssueCredentialsCommand{
		Count:        r.Count,
		SubjectHints: r.hints,
		TTL:          time.Duration(r.TTLSeconds) * time.Second,
	}
}
