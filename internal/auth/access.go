package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AccessClaims are the short-lived access-token claims. The token carries
// identity only — never permission codes, which are re-resolved on every
// request from the role tables.
type AccessClaims struct {
	jwt.RegisteredClaims
	TenantID  *int64 `json:"tid,omitempty"`
	SessionID string `json:"sid"`
}

// Minter mints and verifies HS256 access tokens.
type Minter struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewMinter constructs a Minter.
func NewMinter(secret, issuer string, ttl time.Duration) (*Minter, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: jwt secret must be provided")
	}
	return &Minter{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// TTL exposes the configured access-token lifetime.
func (m *Minter) TTL() time.Duration { return m.ttl }

// Mint signs a new access token for the principal and session.
func (m *Minter) Mint(principalID int64, tenantID *int64, sessionID string) (string, error) {
	now := time.Now().UTC()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(principalID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		TenantID:  tenantID,
		SessionID: sessionID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify parses and validates an access token. Every failure collapses into
// the generic credential error.
func (m *Minter) Verify(raw string) (AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return AccessClaims{}, shared.ErrInvalidCredential
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, shared.ErrInvalidCredential
	}
	return *claims, nil
}

// PrincipalID extracts the numeric subject.
func (c AccessClaims) PrincipalID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, shared.ErrInvalidCredential
	}
	return id, nil
}
