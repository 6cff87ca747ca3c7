package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "solmeet/pkg/domain-errors"
)

const testWallet = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

// TestParseEventID_Invariants validates the parsing invariant:
// "event IDs must be valid, non-empty UUIDs".
func TestParseEventID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseEventID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseEventID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		raw := uuid.New()
		id, err := ParseEventID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, EventID(raw), id)
	})
}

func TestNewEventID_IsTimeOrderedV7(t *testing.T) {
	first, err := NewEventID()
	require.NoError(t, err)
	second, err := NewEventID()
	require.NoError(t, err)

	assert.Equal(t, uuid.Version(7), uuid.UUID(first).Version())
	assert.NotEqual(t, first, second)
	assert.LessOrEqual(t, first.String(), second.String())
}

func TestNonce_RoundTrip(t *testing.T) {
	n, err := NewNonce()
	require.NoError(t, err)
	assert.False(t, n.IsZero())

	parsed, err := ParseNonce(n.String())
	require.NoError(t, err)
	assert.Equal(t, n, parsed)

	_, err = ParseNonce("abcd")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestIdentity_CanonicalKey(t *testing.T) {
	t.Run("wallet and anonymous keys are tagged", func(t *testing.T) {
		w, err := Wallet(testWallet)
		require.NoError(t, err)
		assert.Equal(t, "wallet:"+testWallet, w.Key())

		a, err := Anonymous("tg-user-42")
		require.NoError(t, err)
		assert.Equal(t, "anonymous:tg-user-42", a.Key())
	})

	t.Run("same value under different kinds are different claimants", func(t *testing.T) {
		w, err := Wallet(testWallet)
		require.NoError(t, err)
		a, err := Anonymous(testWallet)
		require.NoError(t, err)
		assert.False(t, w.Equal(a))
		assert.NotEqual(t, w.Key(), a.Key())
	})

	t.Run("parse round trips", func(t *testing.T) {
		a, err := Anonymous("tg-user-42")
		require.NoError(t, err)
		parsed, err := ParseIdentity(a.Key())
		require.NoError(t, err)
		assert.True(t, a.Equal(parsed))
	})
}

func TestIdentity_Validation(t *testing.T) {
	cases := []struct {
		name  string
		kind  IdentityKind
		value string
	}{
		{"wallet too short", IdentityWallet, "abc"},
		{"wallet with non-base58 char", IdentityWallet, strings.Repeat("0", 40)},
		{"empty anonymous token", IdentityAnonymous, ""},
		{"anonymous token too long", IdentityAnonymous, strings.Repeat("a", MaxIdentityValueLen+1)},
		{"anonymous token with space", IdentityAnonymous, "a b"},
		{"unknown kind", IdentityUnknown, "x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewIdentity(tc.kind, tc.value)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}

	_, err := ParseIdentity("email:someone")
	assert.Error(t, err)
}
