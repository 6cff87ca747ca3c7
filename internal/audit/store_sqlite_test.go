package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solmeet/internal/platform/sqlite"
)

func TestSQLiteStore_AppendAndList(t *testing.T) {
	db, w := sqlite.OpenTest(t)
	store := NewSQLiteStore(db, w)
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 9, 0, 0, 123, time.UTC)

	require.NoError(t, store.Append(ctx, Event{
		Timestamp: at.Add(time.Second), EventID: "ev-1", Actor: "wallet:abc", Action: ActionClaimRejected,
		Outcome: "rejected", Reason: "already_claimed", RequestID: "req-2", Device: "bot",
	}))
	require.NoError(t, store.Append(ctx, Event{
		Timestamp: at, EventID: "ev-1", Actor: "org:1", Action: ActionEventPublished, RequestID: "req-1",
	}))
	require.NoError(t, store.Append(ctx, Event{Timestamp: at, EventID: "ev-2", Action: ActionEventCreated}))

	events, err := store.ListByEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ActionEventPublished, events[0].Action)
	assert.True(t, at.Equal(events[0].Timestamp))
	assert.Equal(t, "bot", events[1].Device)
	assert.Equal(t, "already_claimed", events[1].Reason)

	none, err := store.ListByEvent(ctx, "ev-missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStore_BehindPublisher(t *testing.T) {
	db, w := sqlite.OpenTest(t)
	p := NewPublisher(NewSQLiteStore(db, w), WithAsyncBuffer(8))

	for range 3 {
		require.NoError(t, p.Emit(context.Background(), Event{EventID: "ev-1", Action: ActionClaimAccepted}))
	}
	p.Close()

	events, err := p.ListByEvent(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Len(t, events, 3)
}
