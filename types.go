package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated caller.
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	CallerFromToken(token string) (*CallerContext, error)
	IdentityFromCaller(ctx context.Context, caller *CallerContext) (Identity, error)
}

// IdentityProvider ensures we have a store to retrieve auth identities.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenService issues and validates signed session tokens.
type TokenService interface {
	Generate(identity Identity) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidator validates raw tokens. Satisfied by TokenService; a custom
// implementation lets deployments accept externally issued tokens.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// UserStore is the data-store contract the auth core consumes. A bun backed
// implementation lives in repo_users.go; tests inject doubles.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Insert(ctx context.Context, record *User) (*User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) (*User, error)
	UpdateStatus(ctx context.Context, id string, status UserStatus, suspendedAt *time.Time) (*User, error)
	List(ctx context.Context) ([]*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetDebug() bool
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// tokenPreview returns a short, log-safe prefix of a token. Debug logging of
// credentials is restricted to this form and gated by Config.GetDebug.
func tokenPreview(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:8] + "..."
}

// nowPtr is a small helper for models carrying *time.Time timestamps.
func nowPtr() *time.Time {
	n := time.Now()
	return &n
}
