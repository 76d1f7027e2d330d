package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the read surface of a verified token payload.
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Role() string
	HasRole(role UserRole) bool
	IsSelf(targetUserID string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims carried inside the
// signed token: subject id, email, and role. Claims are immutable once
// issued; changing any of them requires issuing a new token.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID       string         `json:"uid,omitempty"`
	UserEmail string         `json:"email,omitempty"`
	UserRole  string         `json:"role,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"` // extension payload
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Email returns the informational email claim.
func (c *JWTClaims) Email() string {
	return c.UserEmail
}

// Role returns the caller's role claim.
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// HasRole checks for an exact role match. There is no role hierarchy:
// ADMIN-gated operations accept ADMIN and nothing else.
func (c *JWTClaims) HasRole(role UserRole) bool {
	return UserRole(c.UserRole) == role
}

// IsSelf reports whether the claims identify the given target user. Used for
// self-service operations where role is irrelevant.
func (c *JWTClaims) IsSelf(targetUserID string) bool {
	return targetUserID != "" && c.UserID() == targetUserID
}

// ClaimsMetadata exposes metadata extensions for optional context enrichment.
func (c *JWTClaims) ClaimsMetadata() map[string]any {
	return c.Metadata
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
