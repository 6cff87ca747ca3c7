package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestEvent(t *testing.T, draft bool) *Event {
	t.Helper()
	organizer, err := domain.Anonymous("organizer-1")
	require.NoError(t, err)
	window, err := NewWindow(t0, t0.Add(time.Hour), t0)
	require.NoError(t, err)
	ev, err := NewEvent(NewEventParams{
		ID:        domain.EventID(uuid.New()),
		Organizer: organizer,
		Title:     "Solana Summit",
		Window:    window,
		Capacity:  2,
		Draft:     draft,
	}, t0)
	require.NoError(t, err)
	return ev
}

// TestTransitionTable pins the whole lifecycle table: every pair not listed
// is rejected with event_closed.
func TestTransitionTable(t *testing.T) {
	all := []Status{StatusDraft, StatusOpen, StatusClosed, StatusCancelled}
	allowed := map[[2]Status]bool{
		{StatusDraft, StatusOpen}:      true,
		{StatusDraft, StatusCancelled}: true,
		{StatusOpen, StatusClosed}:     true,
		{StatusOpen, StatusCancelled}:  true,
	}
	for _, from := range all {
		for _, to := range all {
			ev := &Event{Status: from}
			err := ev.TransitionTo(to, t0)
			if allowed[[2]Status{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, ev.Status)
			} else {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeEventClosed), "%s -> %s", from, to)
				assert.Equal(t, from, ev.Status, "rejected transition must leave state untouched")
			}
		}
	}
	assert.True(t, StatusClosed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusDraft.IsTerminal())
}

func TestNewWindow(t *testing.T) {
	_, err := NewWindow(t0, t0, t0.Add(-time.Hour))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidWindow))

	_, err = NewWindow(t0.Add(time.Hour), t0, t0.Add(-2*time.Hour))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidWindow))

	_, err = NewWindow(t0.Add(-2*time.Hour), t0.Add(-time.Hour), t0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidWindow))

	_, err = NewWindow(t0.Add(-time.Hour), t0, t0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidWindow), "end == now is in the past")

	w, err := NewWindow(t0.Add(-time.Hour), t0.Add(time.Hour), t0)
	require.NoError(t, err)
	assert.True(t, w.Contains(t0.Add(time.Hour)))
	assert.False(t, w.Contains(t0.Add(time.Hour+time.Second)))
	assert.True(t, w.Contains(t0.Add(-time.Hour)))
}

func TestNewEvent_StatusFollowsDraftFlag(t *testing.T) {
	assert.Equal(t, StatusOpen, newTestEvent(t, false).Status)
	assert.Equal(t, StatusDraft, newTestEvent(t, true).Status)
}

func TestExpireIfEnded(t *testing.T) {
	ev := newTestEvent(t, false)
	assert.False(t, ev.ExpireIfEnded(ev.Window.End))
	assert.True(t, ev.ExpireIfEnded(ev.Window.End.Add(time.Second)))
	assert.Equal(t, StatusClosed, ev.Status)

	draft := newTestEvent(t, true)
	assert.False(t, draft.ExpireIfEnded(draft.Window.End.Add(time.Hour)))
}

func TestIsOrganizer(t *testing.T) {
	ev := newTestEvent(t, false)
	other, err := domain.Anonymous("organizer-2")
	require.NoError(t, err)
	assert.True(t, ev.IsOrganizer(ev.Organizer))
	assert.False(t, ev.IsOrganizer(other))
}
