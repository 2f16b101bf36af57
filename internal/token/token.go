// Package token mints and checks acceptance credentials.
//
// A document id is a random UUIDv4. The token bound to it is a truncated
// HMAC-SHA256 over the id and the issuance instant, so it cannot be derived
// from the id alone. Only Hash(token) is persisted.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the validity window of a freshly issued token.
const DefaultTTL = 7 * 24 * time.Hour

// tokenLen is the number of hex characters kept from the MAC (128 bits).
const tokenLen = 32

const shortCodeLen = 8

var (
	ErrMismatch    = errors.New("token does not match document")
	ErrExpired     = errors.New("token expired")
	ErrEmptySecret = errors.New("token secret is required")
)

// Credential is the result of issuing a token for a document.
type Credential struct {
	DocumentID string
	Token      string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Issuer mints tokens with a fixed secret and lifetime.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. A non-positive ttl falls back to DefaultTTL and a nil clock to time.Now.
func NewIssuer(secret string, ttl time.Duration, now func() time.Time) (*Issuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// TTL returns the validity window applied to new credentials.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue mints a credential for docID valid from now for the issuer's TTL.
func (i *Issuer) Issue(docID string) Credential {
	issuedAt := i.now().UTC()
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(docID))
	mac.Write([]byte{'|'})
	mac.Write([]byte(issuedAt.Format(time.RFC3339Nano)))

	return Credential{
		DocumentID: docID,
		Token:      hex.EncodeToString(mac.Sum(nil))[:tokenLen],
		IssuedAt:   issuedAt,
		ExpiresAt:  issuedAt.Add(i.ttl),
	}
}

// NewDocumentID returns a fresh random document identifier.
func NewDocumentID() string {
	return uuid.NewString()
}

// ShortCode is the human-facing prefix of a document id printed on documents.
func ShortCode(docID string) string {
	if len(docID) <= shortCodeLen {
		return docID
	}
	return docID[:shortCodeLen]
}

// Hash returns the hex SHA-256 of token, the form in which tokens are stored.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Verify checks token against storedHash and the expiry instant.
// A wrong token yields ErrMismatch whether or not the window has passed.
func Verify(storedHash, token string, expiresAt, now time.Time) error {
	got := Hash(token)
	if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(storedHash)) != 1 {
		return ErrMismatch
	}
	if !now.Before(expiresAt) {
		return ErrExpired
	}
	return nil
}
