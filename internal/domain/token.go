package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AccessClaims are carried by access tokens. IssuedAtMilli repeats iat in
// milliseconds because NumericDate only carries whole seconds and staleness
// must be decided within the same second.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID        uuid.UUID `json:"uid"`
	Role          Role      `json:"role"`
	TokenType     string    `json:"type"`
	IssuedAtMilli int64     `json:"iat_ms"`
}

// IssuedAtTime returns the millisecond-precise issue time.
func (c *AccessClaims) IssuedAtTime() time.Time {
	return time.UnixMilli(c.IssuedAtMilli)
}

// RefreshClaims are carried by refresh tokens. They intentionally omit the role.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID    uuid.UUID `json:"uid"`
	TokenType string    `json:"type"`
}

// TokenPair is the result of a login or a rotation. Tokens travel only in cookies.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	RefreshExpiresAt time.Time
}
