package credential

import (
	"encoding/base64"
	"encoding/binary"
	"strings"
	"time"

	"github.com/google/uuid"

	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
)

// signingDomain separates credential signatures from any other use of the
// derived keys.
var signingDomain = []byte("solmeet/claim-credential/v1\x00")

// MaxTextSize is the longest text form, URI prefix included.
var MaxTextSize = len(URIPrefix) + base64.RawURLEncoding.EncodedLen(MaxEncodedSize)

func malformed(msg string) error {
	return dErrors.New(dErrors.CodeMalformedCredential, msg)
}

// body serializes everything covered by the signature.
func (c *ClaimCredential) body() []byte {
	size := headerSize
	var hint []byte
	if c.HasSubjectHint() {
		hint = encodeHint(c.SubjectHint)
		size += 1 + len(hint)
	}

	buf := make([]byte, 0, size+signatureSize)
	flags := byte(0)
	if hint != nil {
		flags |= flagSubjectHint
	}
	buf = append(buf, Version, flags)
	buf = append(buf, c.EventID.Bytes()...)
	buf = append(buf, c.Nonce[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(c.ExpiresAt.Unix()))
	if hint != nil {
		buf = append(buf, byte(len(hint)))
		buf = append(buf, hint...)
	}
	return buf
}

// signedMessage is the exact byte string the issuer signs.
func (c *ClaimCredential) signedMessage() []byte {
	body := c.body()
	msg := make([]byte, 0, len(signingDomain)+len(body))
	msg = append(msg, signingDomain...)
	return append(msg, body...)
}

func encodeHint(id domain.Identity) []byte {
	hint := make([]byte, 0, 1+len(id.Value()))
	hint = append(hint, byte(id.Kind()))
	return append(hint, id.Value()...)
}

// Encode returns the binary form. The credential must be signed.
func (c *ClaimCredential) Encode() []byte {
	return append(c.body(), c.Signature...)
}

// Text returns the unpadded base64url form.
func (c *ClaimCredential) Text() string {
	return base64.RawURLEncoding.EncodeToString(c.Encode())
}

// URI returns the QR payload form, solmeet://claim/<text>.
func (c *ClaimCredential) URI() string {
	return URIPrefix + c.Text()
}

// Decode parses the binary form. All structural checks run here, before any
// signature verification, so malformed input never reaches the key material.
func Decode(raw []byte) (*ClaimCredential, error) {
	if len(raw) < MinEncodedSize || len(raw) > MaxEncodedSize {
		return nil, malformed("credential has invalid length")
	}
	if raw[0] != Version {
		return nil, malformed("unsupported credential version")
	}
	flags := raw[1]
	if flags&flagsReserved != 0 {
		return nil, malformed("credential sets reserved flags")
	}

	cred := &ClaimCredential{}
	eventID, err := uuid.FromBytes(raw[2:18])
	if err != nil {
		return nil, malformed("credential event id is invalid")
	}
	cred.EventID = domain.EventID(eventID)
	if cred.EventID.IsNil() {
		return nil, malformed("credential event id is nil")
	}
	copy(cred.Nonce[:], raw[18:18+domain.NonceSize])
	if cred.Nonce.IsZero() {
		return nil, malformed("credential nonce is zero")
	}
	expiry := binary.BigEndian.Uint64(raw[18+domain.NonceSize : headerSize])
	if expiry == 0 || expiry > maxExpiryUnix {
		return nil, malformed("credential expiry out of range")
	}
	cred.ExpiresAt = time.Unix(int64(expiry), 0).UTC()

	rest := raw[headerSize:]
	if flags&flagSubjectHint != 0 {
		if len(rest) < 1 {
			return nil, malformed("credential hint is truncated")
		}
		hintLen := int(rest[0])
		if hintLen < 2 || hintLen > MaxHintSize {
			return nil, malformed("credential hint has invalid length")
		}
		if len(rest) != 1+hintLen+signatureSize {
			return nil, malformed("credential has invalid length")
		}
		hint, err := domain.NewIdentity(domain.IdentityKind(rest[1]), string(rest[2:1+hintLen]))
		if err != nil {
			return nil, malformed("credential hint is not a valid identity")
		}
		cred.SubjectHint = hint
		rest = rest[1+hintLen:]
	}
	if len(rest) != signatureSize {
		return nil, malformed("credential has invalid length")
	}
	cred.Signature = append([]byte(nil), rest...)
	return cred, nil
}

// DecodeText parses the text form, with or without the URI prefix.
func DecodeText(text string) (*ClaimCredential, error) {
	text = strings.TrimSpace(text)
	if len(text) > MaxTextSize {
		return nil, malformed("credential text too long")
	}
	text = strings.TrimPrefix(text, URIPrefix)
	if text == "" {
		return nil, malformed("credential is empty")
	}
	raw, err := base64.RawURLEncoding.Strict().DecodeString(text)
	if err != nil {
		return nil, malformed("credential is not base64url")
	}
	return Decode(raw)
}
