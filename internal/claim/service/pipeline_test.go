package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	claimmetrics "solmeet/internal/claim/metrics"
	"solmeet/internal/credential"
	eventmodels "solmeet/internal/event/models"
	eventstore "solmeet/internal/event/store"
	"solmeet/internal/ledger/issuance"
	ledgerstore "solmeet/internal/ledger/store"
	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
	"solmeet/pkg/requestcontext"
	"solmeet/pkg/testutil"
)

// Three attendees race for a capacity-2 event; exactly two proofs exist
// afterwards and a replayed credential is refused.
func TestPresentClaim_CapacityRaceAndReplay(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	keyring, err := credential.NewKeyring(bytes.Repeat([]byte{3}, credential.MinMasterSeedSize))
	require.NoError(t, err)
	events := eventstore.NewInMemory()
	ledger := ledgerstore.NewInMemory()
	gateway, err := issuance.New(ledger, bytes.Repeat([]byte{9}, 32))
	require.NoError(t, err)
	metrics := claimmetrics.New(prometheus.NewRegistry())
	svc := New(events, keyring, ledger, gateway, WithMetrics(metrics))

	organizer, err := domain.Anonymous("tg-organizer")
	require.NoError(t, err)
	id, err := domain.NewEventID()
	require.NoError(t, err)
	event, err := eventmodels.NewEvent(eventmodels.NewEventParams{
		ID:        id,
		Organizer: organizer,
		Title:     "Capacity Two",
		Window:    eventmodels.Window{Start: t0, End: t0.Add(time.Hour)},
		Capacity:  2,
	}, t0.Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, events.Create(ctx, event))

	creds := make([]*credential.ClaimCredential, 3)
	claimants := make([]domain.Identity, 3)
	for i := range creds {
		creds[i], err = keyring.Issue(credential.IssueParams{
			EventID: id, WindowEnd: event.Window.End, TTL: 30 * time.Minute, Now: t0,
		})
		require.NoError(t, err)
		claimants[i], err = domain.Anonymous(fmt.Sprintf("tg-attendee-%d", i))
		require.NoError(t, err)
	}

	claimCtx := requestcontext.WithTime(ctx, t0.Add(10*time.Second))
	result := testutil.RunConcurrent(3, func(i int) error {
		_, err := svc.PresentClaim(claimCtx, claimants[i], creds[i].URI())
		return err
	})
	assert.Equal(t, 2, result.Successes)
	assert.Equal(t, 1, result.Code(dErrors.CodeCapacityExceeded))

	count, err := ledger.CountByEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	entries, err := svc.ListClaims(ctx, organizer, id)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.True(t, gateway.Verify(e.Proof))
	}

	// replay of an accepted credential by its own holder
	winner := entries[0].Record.Claimant
	var replay *credential.ClaimCredential
	for i, c := range claimants {
		if c.Equal(winner) {
			replay = creds[i]
		}
	}
	require.NotNil(t, replay)
	_, err = svc.PresentClaim(requestcontext.WithTime(ctx, t0.Add(20*time.Second)), winner, replay.Text())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyClaimed), "got %v", err)

	proof, err := svc.GetMyProof(ctx, winner, id)
	require.NoError(t, err)
	assert.Equal(t, entries[0].Proof.Digest, proof.Proof.Digest)

	assert.Equal(t, 2.0, prom.ToFloat64(metrics.ClaimOutcomes.WithLabelValues(outcomeAccepted)))
	assert.Equal(t, 1.0, prom.ToFloat64(metrics.ClaimOutcomes.WithLabelValues(string(dErrors.CodeAlreadyClaimed))))
}

// Same credential presented concurrently by many attendees: one proof.
func TestPresentClaim_NonceSingleUseUnderRace(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	keyring, err := credential.NewKeyring(bytes.Repeat([]byte{4}, credential.MinMasterSeedSize))
	require.NoError(t, err)
	events := eventstore.NewInMemory()
	ledger := ledgerstore.NewInMemory()
	gateway, err := issuance.New(ledger, bytes.Repeat([]byte{5}, 32))
	require.NoError(t, err)
	svc := New(events, keyring, ledger, gateway)

	organizer, err := domain.Anonymous("tg-organizer")
	require.NoError(t, err)
	id, err := domain.NewEventID()
	require.NoError(t, err)
	event, err := eventmodels.NewEvent(eventmodels.NewEventParams{
		ID: id, Organizer: organizer, Title: "Open Floor",
		Window: eventmodels.Window{Start: t0, End: t0.Add(time.Hour)},
	}, t0)
	require.NoError(t, err)
	require.NoError(t, events.Create(ctx, event))

	cred, err := keyring.Issue(credential.IssueParams{EventID: id, WindowEnd: event.Window.End, TTL: time.Hour, Now: t0})
	require.NoError(t, err)

	claimCtx := requestcontext.WithTime(ctx, t0.Add(time.Minute))
	result := testutil.RunConcurrent(25, func(i int) error {
		who, err := domain.Anonymous(fmt.Sprintf("tg-%d", i))
		if err != nil {
			return err
		}
		_, err = svc.PresentClaim(claimCtx, who, cred.Text())
		return err
	})
	assert.Equal(t, 1, result.Successes)
	assert.Equal(t, 24, result.Code(dErrors.CodeAlreadyClaimed))
}
