package audit

import "time"

// Event is emitted from domain logic to capture organizer actions and claim
// outcomes. Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	EventID   string
	Actor     string
	Action    Action
	Outcome   string
	Reason    string
	RequestID string
	// Device is the coarse client label, e.g. "chrome on android".
	Device string
}

type Action string

const (
	ActionEventCreated      Action = "event_created"
	ActionEventPublished    Action = "event_published"
	ActionEventClosed       Action = "event_closed"
	ActionEventCancelled    Action = "event_cancelled"
	ActionEventExpired      Action = "event_expired"
	ActionCredentialsIssued Action = "credentials_issued"
	ActionClaimAccepted     Action = "claim_accepted"
	ActionClaimRejected     Action = "claim_rejected"
)
