package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CallerContext is the per-request resolution of a presented credential. It
// lives for the duration of one request and is never persisted. A caller is
// either authenticated with the claims the token carried, or anonymous.
type CallerContext struct {
	UserID         string     `json:"user_id,omitempty"`
	Email          string     `json:"email,omitempty"`
	Role           UserRole   `json:"role,omitempty"`
	Audience       []string   `json:"audience,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`

	authenticated bool
}

// AnonymousCaller is the terminal state for requests whose credential was
// absent, forged, expired, or unverifiable.
func AnonymousCaller() *CallerContext {
	return &CallerContext{}
}

// Authenticated reports whether a valid credential backed this caller.
func (c *CallerContext) Authenticated() bool {
	return c != nil && c.authenticated
}

// GetUserID returns the stable subject identifier, empty for anonymous callers.
func (c *CallerContext) GetUserID() string {
	if c == nil {
		return ""
	}
	return c.UserID
}

// GetUserUUID parses the subject identifier as a UUID.
func (c *CallerContext) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.GetUserID())
}

// HasRole checks for an exact role match, anonymous callers have no role.
func (c *CallerContext) HasRole(role UserRole) bool {
	return c.Authenticated() && c.Role == role
}

// IsSelf reports whether the caller is the given target user.
func (c *CallerContext) IsSelf(targetUserID string) bool {
	return c.Authenticated() && targetUserID != "" && c.UserID == targetUserID
}

func (c CallerContext) String() string {
	if !c.authenticated {
		return "caller=anonymous"
	}
	issuedAt := "<nil>"
	if c.IssuedAt != nil {
		issuedAt = c.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"caller=%s role=%s iss=%s iat=%s",
		c.UserID,
		c.Role,
		c.Issuer,
		issuedAt,
	)
}

// callerFromAuthClaims builds an authenticated CallerContext from verified
// token claims.
func callerFromAuthClaims(claims AuthClaims) (*CallerContext, error) {
	if claims == nil {
		return nil, ErrTokenMalformed
	}

	var audience []string
	if jwtClaims, ok := claims.(*JWTClaims); ok {
		audience = append(audience, jwtClaims.RegisteredClaims.Audience...)
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()

	return &CallerContext{
		UserID:         claims.UserID(),
		Email:          claims.Email(),
		Role:           UserRole(claims.Role()),
		Audience:       audience,
		Issuer:         issuerFromClaims(claims),
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
		authenticated:  true,
	}, nil
}

func issuerFromClaims(claims AuthClaims) string {
	if jwtClaims, ok := claims.(*JWTClaims); ok {
		return jwtClaims.RegisteredClaims.Issuer
	}
	return ""
}
