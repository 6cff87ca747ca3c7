//go:build integration

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solmeet/pkg/testutil/containers"
)

func TestPostgresStore_RoundTrip(t *testing.T) {
	pg := containers.GetManager().GetPostgres(t)
	ctx := context.Background()
	require.NoError(t, pg.TruncateTables(ctx, "audit_events"))

	store := NewPostgresStore(pg.DB)
	p := NewPublisher(store, WithAsyncBuffer(16))
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := range 3 {
		require.NoError(t, p.Emit(ctx, Event{
			Timestamp: at.Add(time.Duration(i) * time.Second),
			EventID:   "0192f0c4-7d2a-7000-8000-000000000001",
			Actor:     "wallet:abc",
			Action:    ActionClaimAccepted,
			Outcome:   "success",
			Device:    "bot",
		}))
	}
	p.Close()

	events, err := store.ListByEvent(ctx, "0192f0c4-7d2a-7000-8000-000000000001")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.True(t, at.Equal(events[0].Timestamp))
	assert.Equal(t, "bot", events[2].Device)
}
