package jwttoken

import (
	"context"
	"errors"
	"time"

	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
	"solmeet/pkg/requestcontext"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CallerClaims are the claims the external identity provider puts in a
// caller token. Subject carries the opaque identifier and IdentityKind tells
// whether it is a wallet public key or an anonymous handle.
type CallerClaims struct {
	IdentityKind string `json:"idk"`
	jwt.RegisteredClaims
}

// JWTService mints and validates HS256 caller tokens. The signing key is
// shared with the identity provider; the service never sees wallet keys.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
}

func NewJWTService(signingKey string, issuer string, audience string, tokenTTL time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		tokenTTL:   tokenTTL,
	}
}

// GenerateCallerToken signs a token asserting the given identity.
// Used by the dev token CLI and tests; production tokens come from the provider.
func (s *JWTService) GenerateCallerToken(ctx context.Context, caller domain.Identity) (string, error) {
	if caller.IsZero() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "caller identity is required")
	}
	now := requestcontext.Now(ctx)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, CallerClaims{
		IdentityKind: caller.Kind().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.Value(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ValidateToken checks signature, algorithm, expiry, issuer and audience.
func (s *JWTService) ValidateToken(tokenString string) (*CallerClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &CallerClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*CallerClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ValidateCaller validates the token and resolves the tagged identity it asserts.
func (s *JWTService) ValidateCaller(tokenString string) (domain.Identity, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return domain.Identity{}, err
	}
	kind, err := domain.ParseIdentityKind(claims.IdentityKind)
	if err != nil {
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "token carries unknown identity kind")
	}
	caller, err := domain.NewIdentity(kind, claims.Subject)
	if err != nil {
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "token subject is not a valid identity")
	}
	return caller, nil
}
