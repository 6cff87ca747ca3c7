package jwttoken

import (
	"context"
	"testing"
	"time"

	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
	"solmeet/pkg/requestcontext"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

var jwtService = NewJWTService("test-signing-key", "solmeet-idp", "solmeet", time.Minute)

func mustWallet(t *testing.T) domain.Identity {
	t.Helper()
	w, err := domain.Wallet(testWallet)
	require.NoError(t, err)
	return w
}

func Test_GenerateCallerToken_RoundTrip(t *testing.T) {
	caller := mustWallet(t)
	token, err := jwtService.GenerateCallerToken(context.Background(), caller)
	require.NoError(t, err)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "wallet", claims.IdentityKind)
	assert.Equal(t, testWallet, claims.Subject)

	resolved, err := jwtService.ValidateCaller(token)
	require.NoError(t, err)
	assert.True(t, caller.Equal(resolved))
}

func Test_GenerateCallerToken_RejectsZeroIdentity(t *testing.T) {
	_, err := jwtService.GenerateCallerToken(context.Background(), domain.Identity{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.ErrorContains(t, err, "invalid token")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	ctx := requestcontext.WithTime(context.Background(), time.Now().Add(-2*time.Hour))
	token, err := jwtService.GenerateCallerToken(ctx, mustWallet(t))
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorContains(t, err, "token expired")
}

func Test_ValidateToken_WrongAudience(t *testing.T) {
	other := NewJWTService("test-signing-key", "solmeet-idp", "someone-else", time.Minute)
	token, err := other.GenerateCallerToken(context.Background(), mustWallet(t))
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.Error(t, err)
}

func Test_ValidateToken_RejectsAlgorithmConfusion(t *testing.T) {
	claims := CallerClaims{
		IdentityKind: "wallet",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testWallet,
			Issuer:    "solmeet-idp",
			Audience:  []string{"solmeet"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(signed)
	assert.Error(t, err)
}

func Test_ValidateCaller_RejectsUnknownKind(t *testing.T) {
	claims := CallerClaims{
		IdentityKind: "email",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "someone@example.com",
			Issuer:    "solmeet-idp",
			Audience:  []string{"solmeet"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = jwtService.ValidateCaller(signed)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
