package credential

import (
	"crypto/ed25519"
	"crypto/sha256"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"

	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
)

// MinMasterSeedSize is the shortest accepted master seed.
const MinMasterSeedSize = 32

var hkdfSalt = []byte("solmeet/credential-issuer/v1")

// Keyring derives one Ed25519 issuer key per event from the master seed with
// HKDF-SHA256, info = event id. Verification is stateless: no key lookup.
type Keyring struct {
	seed []byte
}

// NewKeyring copies the master seed.
func NewKeyring(masterSeed []byte) (*Keyring, error) {
	if len(masterSeed) < MinMasterSeedSize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential master seed must be at least 32 bytes")
	}
	return &Keyring{seed: append([]byte(nil), masterSeed...)}, nil
}

func (k *Keyring) privateKey(eventID domain.EventID) ed25519.PrivateKey {
	r := hkdf.New(sha256.New, k.seed, hkdfSalt, eventID.Bytes())
	keySeed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(r, keySeed); err != nil {
		// HKDF-SHA256 can produce up to 8160 bytes; 32 never fails.
		panic(err)
	}
	return ed25519.NewKeyFromSeed(keySeed)
}

// PublicKey returns the issuer key for an event, for offline verifiers.
func (k *Keyring) PublicKey(eventID domain.EventID) ed25519.PublicKey {
	return k.privateKey(eventID).Public().(ed25519.PublicKey)
}

// Sign fills in the credential's signature.
func (k *Keyring) Sign(cred *ClaimCredential) {
	cred.Signature = ed25519.Sign(k.privateKey(cred.EventID), cred.signedMessage())
}

// Verify checks the signature against the declared event's issuer key.
func (k *Keyring) Verify(cred *ClaimCredential) error {
	if len(cred.Signature) != ed25519.SignatureSize {
		return dErrors.New(dErrors.CodeForgedCredential, "credential signature does not verify")
	}
	if !ed25519.Verify(k.PublicKey(cred.EventID), cred.signedMessage(), cred.Signature) {
		return dErrors.New(dErrors.CodeForgedCredential, "credential signature does not verify")
	}
	return nil
}

// IssueParams describes one credential to mint.
type IssueParams struct {
	EventID     domain.EventID
	WindowStart time.Time
	WindowEnd   time.Time
	SubjectHint domain.Identity
	TTL         time.Duration
	Now         time.Time
}

// Issue mints a signed credential. The ttl runs from the later of now and the
// window start, so credentials handed out ahead of an event are still valid
// when it opens. Expiry is capped at the window end and truncated to whole
// seconds so it survives the wire format unchanged.
func (k *Keyring) Issue(p IssueParams) (*ClaimCredential, error) {
	if p.EventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "event id is required")
	}
	if p.TTL <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential ttl must be positive")
	}
	if !p.SubjectHint.IsZero() && len(encodeHint(p.SubjectHint)) > MaxHintSize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject hint too long")
	}

	from := p.Now
	if p.WindowStart.After(from) {
		from = p.WindowStart
	}
	expiry := from.Add(p.TTL)
	if !p.WindowEnd.IsZero() && p.WindowEnd.Before(expiry) {
		expiry = p.WindowEnd
	}
	expiry = expiry.Truncate(time.Second).UTC()
	if !expiry.After(p.Now) {
		return nil, dErrors.New(dErrors.CodeExpired, "credential would expire immediately")
	}

	nonce, err := domain.NewNonce()
	if err != nil {
		return nil, err
	}
	cred := &ClaimCredential{
		EventID:     p.EventID,
		SubjectHint: p.SubjectHint,
		Nonce:       nonce,
		ExpiresAt:   expiry,
	}
	k.Sign(cred)
	return cred, nil
}
