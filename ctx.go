package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var callerCtxKey = &contextKey{"caller"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithCallerContext sets the resolved CallerContext in the given context
func WithCallerContext(r context.Context, caller *CallerContext) context.Context {
	return context.WithValue(r, callerCtxKey, caller)
}

// CallerFromContext extracts the CallerContext from the standard context.
// Requests that never passed the gate resolve to the anonymous caller.
func CallerFromContext(ctx context.Context) *CallerContext {
	if caller, ok := ctx.Value(callerCtxKey).(*CallerContext); ok {
		return caller
	}
	return AnonymousCaller()
}

// GetRouterClaims extracts the verified AuthClaims from the router context
func GetRouterClaims(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = "user" // Default key used by the token middleware
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}

// CallerFromRouter resolves the request's caller from the router context,
// anonymous when the token middleware stored nothing usable.
func CallerFromRouter(ctx router.Context, key string) *CallerContext {
	claims, ok := GetRouterClaims(ctx, key)
	if !ok {
		return AnonymousCaller()
	}

	caller, err := callerFromAuthClaims(claims)
	if err != nil {
		return AnonymousCaller()
	}

	return caller
}
