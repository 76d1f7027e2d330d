package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// ScopedTokenOptions controls how MintScopedToken issues short-lived tokens.
// Zero values fall back to the TokenService defaults.
type ScopedTokenOptions struct {
	TTL      time.Duration
	Issuer   string
	Audience []string
	IssuedAt time.Time
	// Scopes narrows what the minted token may be used for; it travels in the
	// Metadata extension.
	Scopes []string
}

type tokenDefaults struct {
	issuer   string
	audience jwt.ClaimStrings
	ttl      time.Duration
}

type tokenDefaultsProvider interface {
	tokenDefaults() tokenDefaults
}

// MintScopedToken issues a short-lived token for flows where a full workday
// session would be far too long: receipt links, terminal pairing, onboarding
// handoffs. The identity claims are the same as a session token so the gate
// resolves callers from either.
func MintScopedToken(tokenService TokenService, identity Identity, opts ScopedTokenOptions) (string, time.Time, error) {
	if tokenService == nil {
		return "", time.Time{}, goerrors.New("token service is required", goerrors.CategoryBadInput)
	}
	if identity == nil {
		return "", time.Time{}, goerrors.New("identity is required", goerrors.CategoryBadInput)
	}

	opts = fillTokenDefaults(tokenService, opts)

	if opts.TTL < 0 {
		return "", time.Time{}, goerrors.New("token TTL must be non-negative", goerrors.CategoryBadInput)
	}

	issuedAt := opts.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	expiresAt := issuedAt.Add(opts.TTL)

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    opts.Issuer,
			Subject:   identity.ID(),
			Audience:  append(jwt.ClaimStrings(nil), opts.Audience...),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:       identity.ID(),
		UserEmail: identity.Email(),
		UserRole:  identity.Role(),
	}

	if len(opts.Scopes) > 0 {
		claims.Metadata = map[string]any{
			"scopes": append([]string(nil), opts.Scopes...),
		}
	}

	ensureTokenID(&claims.RegisteredClaims)

	signed, err := tokenService.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// fillTokenDefaults copies the service's issuer, audience and TTL into any
// option the caller left unset.
func fillTokenDefaults(tokenService TokenService, opts ScopedTokenOptions) ScopedTokenOptions {
	provider, ok := tokenService.(tokenDefaultsProvider)
	if !ok {
		return opts
	}

	defaults := provider.tokenDefaults()
	if opts.Issuer == "" {
		opts.Issuer = defaults.issuer
	}
	if len(opts.Audience) == 0 {
		opts.Audience = defaults.audience
	}
	if opts.TTL == 0 {
		opts.TTL = defaults.ttl
	}

	return opts
}
