package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Stable text codes surfaced to API clients alongside error payloads.
const (
	TextCodeMissingSecret   = "MISSING_SIGNING_SECRET"
	TextCodeTokenExpired    = "AUTH_TOKEN_EXPIRED"
	TextCodeTokenMalformed  = "AUTH_TOKEN_MALFORMED"
	TextCodeBadCredentials  = "INVALID_CREDENTIALS"
	TextCodeUnauthenticated = "UNAUTHENTICATED"
	TextCodeForbidden       = "FORBIDDEN"
	TextCodeEmailTaken      = "EMAIL_TAKEN"
	TextCodeUserNotFound    = "USER_NOT_FOUND"
	TextCodeUserInactive    = "USER_INACTIVE"
	TextCodeUserSuspended   = "USER_SUSPENDED"
	TextCodeTooManyAttempts = "TOO_MANY_LOGIN_ATTEMPTS"
)

// ErrMissingSigningSecret is a fatal misconfiguration: no token may be issued
// or verified without the process-wide signing secret. Surface it at startup,
// never as a recoverable per-request condition.
var ErrMissingSigningSecret = errors.New("signing secret is not configured", errors.CategoryInternal).
	WithTextCode(TextCodeMissingSecret).
	WithCode(errors.CodeInternal)

// ErrTokenExpired is returned when a presented token is past its expiry.
var ErrTokenExpired = errors.New("authentication token has expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers forged, truncated, or otherwise undecodable tokens.
var ErrTokenMalformed = errors.New("authentication token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the single credential failure returned for
// wrong password, unknown email, and empty input alike. Collapsing the cases
// keeps the login endpoint from confirming which accounts exist.
var ErrMismatchedHashAndPassword = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeBadCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryAuth).
	WithTextCode(TextCodeBadCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthenticated is returned by gate checks when no valid credential
// accompanies the request.
var ErrUnauthenticated = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned by gate checks when the caller is authenticated
// but lacks the required capability.
var ErrForbidden = errors.New("insufficient permissions", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrEmailTaken is surfaced when the store reports an email uniqueness
// violation. The constraint is the authoritative guard, the pre-insert lookup
// only provides a friendlier fast path.
var ErrEmailTaken = errors.New("email is already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrUserNotFound is returned when an operation targets a user id that does
// not exist in the store.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrUserInactive blocks authentication for deactivated accounts.
var ErrUserInactive = errors.New("user account is inactive", errors.CategoryAuth).
	WithTextCode(TextCodeUserInactive).
	WithCode(errors.CodeUnauthorized)

// ErrUserSuspended blocks authentication for suspended accounts.
var ErrUserSuspended = errors.New("user account is suspended", errors.CategoryAuth).
	WithTextCode(TextCodeUserSuspended).
	WithCode(errors.CodeUnauthorized)

// ErrTooManyLoginAttempts enforces the login cool down window.
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty plaintext passwords before hashing.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// ErrImmutableClaimMutation guards the invariant that identity claims never
// change after issuance without a full re-issue.
var ErrImmutableClaimMutation = errors.New("immutable claim mutated", errors.CategoryInternal).
	WithCode(errors.CodeInternal)

// annotate returns a per-call copy of a sentinel carrying request metadata.
// Sentinels are shared package state; WithMetadata writes into the receiver,
// so annotating one in place races across requests and leaks one request's
// details into another's error body. The clone keeps the sentinel as Source
// so errors.Is still resolves.
func annotate(sentinel *errors.Error, metadata map[string]any) error {
	clone := sentinel.Clone()
	if clone == nil {
		return sentinel
	}
	clone.Source = sentinel
	return clone.WithMetadata(metadata)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenExpired) || strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenMalformed) ||
		strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed session token")
}
