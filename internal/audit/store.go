package audit

import "context"

type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEvent(ctx context.Context, eventID string) ([]Event, error)
}
