package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Terminal token states surfaced as errors. Handlers collapse all of them
// into one generic session failure; ErrReplaySuspected is additionally
// recorded as a security event.
var (
	ErrExpired         = errors.New("token: expired")
	ErrRevoked         = errors.New("token: revoked")
	ErrReplaySuspected = errors.New("token: replay suspected")
)

const secretBytes = 32

// RefreshToken represents one authenticated session credential. Only the
// SHA-256 hash of the secret is ever persisted; the raw secret is returned
// to the caller exactly once at issuance. Rows are never mutated in place
// except to set revoked_at.
type RefreshToken struct {
	ID          uuid.UUID
	PrincipalID int64
	TenantID    *int64
	SessionID   uuid.UUID
	SecretHash  string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
}

// Usable reports whether the token may still be presented: not revoked and
// not past expiry.
func (t RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// NewSecret generates a cryptographically random refresh secret.
func NewSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashSecret derives the irreversible lookup hash for a raw secret. Raw
// secrets are compared only in this form.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
