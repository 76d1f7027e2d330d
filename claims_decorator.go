package auth

import "context"

// ClaimsDecorator runs just before a session token is signed and may attach
// request context to the Metadata extension. The guard in claims_guard.go
// rejects any decorator that touches identity or registered claims, so a
// badly behaved decorator fails the login instead of minting a drifted token.
type ClaimsDecorator interface {
	Decorate(ctx context.Context, identity Identity, claims *JWTClaims) error
}

// ClaimsDecoratorFunc adapts a function into a ClaimsDecorator.
type ClaimsDecoratorFunc func(ctx context.Context, identity Identity, claims *JWTClaims) error

func (f ClaimsDecoratorFunc) Decorate(ctx context.Context, identity Identity, claims *JWTClaims) error {
	if f == nil {
		return nil
	}
	return f(ctx, identity, claims)
}

type noopClaimsDecorator struct{}

func (noopClaimsDecorator) Decorate(context.Context, Identity, *JWTClaims) error {
	return nil
}

func normalizeClaimsDecorator(d ClaimsDecorator) ClaimsDecorator {
	if d == nil {
		return noopClaimsDecorator{}
	}
	return d
}
