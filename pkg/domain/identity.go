package domain

import (
	"strings"

	dErrors "solmeet/pkg/domain-errors"
)

// IdentityKind tags which variant an Identity holds.
type IdentityKind uint8

const (
	IdentityUnknown IdentityKind = iota
	IdentityWallet
	IdentityAnonymous
)

const (
	// MaxIdentityValueLen bounds the opaque value so a subject hint always
	// fits the credential's one-byte length prefix together with its kind tag.
	MaxIdentityValueLen = 63

	walletMinLen = 32
	walletMaxLen = 44

	base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
)

var identityKindNames = map[IdentityKind]string{
	IdentityWallet:    "wallet",
	IdentityAnonymous: "anonymous",
}

func (k IdentityKind) String() string {
	if name, ok := identityKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseIdentityKind maps "wallet" / "anonymous" to the variant tag.
func ParseIdentityKind(s string) (IdentityKind, error) {
	for kind, name := range identityKindNames {
		if name == s {
			return kind, nil
		}
	}
	return IdentityUnknown, dErrors.New(dErrors.CodeInvalidInput, "identity kind must be wallet or anonymous")
}

// Identity is either a wallet public key or an opaque anonymous token.
// Two identities are the same claimant iff their Key() values are equal.
type Identity struct {
	kind  IdentityKind
	value string
}

// Wallet builds a wallet identity from a base58 public key.
func Wallet(pubkey string) (Identity, error) {
	return NewIdentity(IdentityWallet, pubkey)
}

// Anonymous builds an anonymous identity from an opaque provider token.
func Anonymous(token string) (Identity, error) {
	return NewIdentity(IdentityAnonymous, token)
}

// NewIdentity validates value against the rules of kind.
func NewIdentity(kind IdentityKind, value string) (Identity, error) {
	switch kind {
	case IdentityWallet:
		if len(value) < walletMinLen || len(value) > walletMaxLen {
			return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "wallet public key has invalid length")
		}
		for i := 0; i < len(value); i++ {
			if strings.IndexByte(base58Alphabet, value[i]) < 0 {
				return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "wallet public key is not base58")
			}
		}
	case IdentityAnonymous:
		if value == "" || len(value) > MaxIdentityValueLen {
			return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "anonymous token must be 1-63 bytes")
		}
		for i := 0; i < len(value); i++ {
			if value[i] <= ' ' || value[i] > '~' {
				return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "anonymous token must be printable ascii")
			}
		}
	default:
		return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "unknown identity kind")
	}
	return Identity{kind: kind, value: value}, nil
}

// ParseIdentity parses the canonical "kind:value" form returned by Key.
func ParseIdentity(key string) (Identity, error) {
	kindName, value, ok := strings.Cut(key, ":")
	if !ok {
		return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "identity must be kind:value")
	}
	kind, err := ParseIdentityKind(kindName)
	if err != nil {
		return Identity{}, err
	}
	return NewIdentity(kind, value)
}

func (i Identity) Kind() IdentityKind { return i.kind }
func (i Identity) Value() string      { return i.value }
func (i Identity) IsZero() bool       { return i.kind == IdentityUnknown }

// Key is the canonical uniqueness key, e.g. "wallet:<pubkey>".
func (i Identity) Key() string {
	if i.IsZero() {
		return ""
	}
	return i.kind.String() + ":" + i.value
}

func (i Identity) String() string { return i.Key() }

// Equal compares the resolved variant values.
func (i Identity) Equal(other Identity) bool {
	return i.kind == other.kind && i.value == other.value
}
