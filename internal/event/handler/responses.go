package handler

import (
	"time"

	"solmeet/internal/audit"
	"solmeet/internal/credential"
	"solmeet/internal/event/models"
	"solmeet/internal/event/service"
)

type EventResponse struct {
	ID          string    `json:"id"`
	Organizer   string    `json:"organizer"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Venue       string    `json:"venue,omitempty"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Capacity    int       `json:"capacity,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EventStatusResponse adds ledger counters; Remaining is -1 when unlimited.
type EventStatusResponse struct {
	EventResponse
	Claimed   int `json:"claimed"`
	Remaining int `json:"remaining"`
}

type EventListResponse struct {
	Events []EventResponse `json:"events"`
}

type CredentialResponse struct {
	Nonce       string    `json:"nonce"`
	ExpiresAt   time.Time `json:"expires_at"`
	SubjectHint string    `json:"subject_hint,omitempty"`
	Text        string    `json:"text"`
	URI         string    `json:"uri"`
}

type IssueCredentialsResponse struct {
	EventID     string               `json:"event_id"`
	Credentials []CredentialResponse `json:"credentials"`
}

type AuditEntryResponse struct {
	OccurredAt time.Time `json:"occurred_at"`
	Actor      string    `json:"actor,omitempty"`
	Action     string    `json:"action"`
	Outcome    string    `json:"outcome,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Device     string    `json:"device,omitempty"`
}

type AuditTrailResponse struct {
	EventID string               `json:"event_id"`
	Entries []AuditEntryResponse `json:"entries"`
}

func toEventResponse(e *models.Event) EventResponse {
	return EventResponse{
		ID:          e.ID.String(),
		Organizer:   e.Organizer.Key(),
		Title:       e.Title,
		Description: e.Description,
		Venue:       e.Venue,
		WindowStart: e.Window.Start,
		WindowEnd:   e.Window.End,
		Capacity:    e.Capacity,
		Status:      string(e.Status),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toEventStatusResponse(st *service.EventStatus) *EventStatusResponse {
	return &EventStatusResponse{
		EventResponse: toEventResponse(st.Event),
		Claimed:       st.Claimed,
		Remaining:     st.Remaining(),
	}
}

func toEventListResponse(events []*models.Event) *EventListResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	return &EventListResponse{Events: out}
}

func toIssueCredentialsResponse(eventID string, creds []*credential.ClaimCredential) *IssueCredentialsResponse {
	out := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		out = append(out, CredentialResponse{
			Nonce:       c.Nonce.String(),
			ExpiresAt:   c.ExpiresAt,
			SubjectHint: c.SubjectHint.Key(),
			Text:        c.Text(),
			URI:         c.URI(),
		})
	}
	return &IssueCredentialsResponse{EventID: eventID, Credentials: out}
}

func toAuditTrailResponse(eventID string, trail []audit.Event) *AuditTrailResponse {
	out := make([]AuditEntryResponse, 0, len(trail))
	for _, e := range trail {
		out = append(out, AuditEntryResponse{
			OccurredAt: e.Timestamp,
			Actor:      e.Actor,
			Action:     string(e.Action),
			Outcome:    e.Outcome,
			Reason:     e.Reason,
			RequestID:  e.RequestID,
			Device:     e.Device,
		})
	}
	return &AuditTrailResponse{EventID: eventID, Entries: out}
}
