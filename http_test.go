package auth

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    *errors.Error
		status int
	}{
		{"missing credential", ErrUnauthenticated, http.StatusUnauthorized},
		{"expired token", ErrTokenExpired, http.StatusUnauthorized},
		{"insufficient role", ErrForbidden, http.StatusForbidden},
		{"missing user", ErrUserNotFound, http.StatusNotFound},
		{"duplicate email", ErrEmailTaken, http.StatusConflict},
		{"bad payload", ErrNoEmptyString, http.StatusBadRequest},
		{"misconfiguration", ErrMissingSigningSecret, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, statusFromError(tt.err))
		})
	}

	t.Run("category decides when no code is set", func(t *testing.T) {
		assert.Equal(t, http.StatusTooManyRequests,
			statusFromError(errors.New("slow down", errors.CategoryRateLimit)))
		assert.Equal(t, http.StatusConflict,
			statusFromError(errors.New("already there", errors.CategoryConflict)))
		assert.Equal(t, http.StatusInternalServerError,
			statusFromError(errors.New("broken", errors.CategoryInternal)))
	})
}

func TestAsRichError(t *testing.T) {
	t.Run("rich errors pass through", func(t *testing.T) {
		richErr := asRichError(ErrEmailTaken)
		assert.Equal(t, TextCodeEmailTaken, richErr.TextCode)
	})

	t.Run("plain errors become opaque internal errors", func(t *testing.T) {
		richErr := asRichError(fmt.Errorf("pq: connection refused"))
		assert.Equal(t, errors.CategoryInternal, richErr.Category)
		assert.Equal(t, "An unexpected server error occurred", richErr.Message)
	})
}

func TestWriteError(t *testing.T) {
	t.Run("renders status, message, code and details", func(t *testing.T) {
		var body map[string]any
		ctx := router.NewMockContext()
		ctx.On("JSON", http.StatusConflict, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		}).Return(nil)

		err := annotate(ErrEmailTaken, map[string]any{"email": "taken@example.com"})
		require.NoError(t, WriteError(ctx, quietLogger{}, err))

		assert.Equal(t, "email is already registered", body["error"])
		assert.Equal(t, TextCodeEmailTaken, body["code"])
		assert.NotNil(t, body["details"])
	})

	t.Run("hides internals of unexpected errors", func(t *testing.T) {
		var body map[string]any
		ctx := router.NewMockContext()
		ctx.On("JSON", http.StatusInternalServerError, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		}).Return(nil)

		require.NoError(t, WriteError(ctx, nil, fmt.Errorf("dial tcp 10.0.0.4:5432: timeout")))

		assert.Equal(t, "An unexpected server error occurred", body["error"])
		assert.NotContains(t, fmt.Sprint(body), "10.0.0.4")
	})
}

func TestMakeRouteAuthErrorHandler(t *testing.T) {
	newRouteAuth := func(t *testing.T) (*RouteAuthenticator, *error) {
		t.Helper()
		routeAuth := &RouteAuthenticator{Logger: quietLogger{}}
		var captured error
		routeAuth.ErrorHandler = func(_ router.Context, err error) error {
			captured = err
			return nil
		}
		return routeAuth, &captured
	}

	t.Run("expired tokens map to the expiry sentinel", func(t *testing.T) {
		routeAuth, captured := newRouteAuth(t)
		handler := routeAuth.MakeRouteAuthErrorHandler(false)

		require.NoError(t, handler(router.NewMockContext(), jwt.ErrTokenExpired))
		assert.ErrorIs(t, *captured, ErrTokenExpired)
	})

	t.Run("undecodable tokens map to the malformed sentinel", func(t *testing.T) {
		routeAuth, captured := newRouteAuth(t)
		handler := routeAuth.MakeRouteAuthErrorHandler(false)

		require.NoError(t, handler(router.NewMockContext(), jwt.ErrTokenMalformed))
		assert.ErrorIs(t, *captured, ErrTokenMalformed)
	})

	t.Run("other failures become a generic auth error", func(t *testing.T) {
		routeAuth, captured := newRouteAuth(t)
		handler := routeAuth.MakeRouteAuthErrorHandler(false)

		require.NoError(t, handler(router.NewMockContext(), fmt.Errorf("signature is invalid")))

		var richErr *errors.Error
		require.ErrorAs(t, *captured, &richErr)
		assert.Equal(t, errors.CategoryAuth, richErr.Category)
		assert.Equal(t, http.StatusUnauthorized, richErr.Code)
	})

	t.Run("optional routes proceed unauthenticated", func(t *testing.T) {
		routeAuth, captured := newRouteAuth(t)
		handler := routeAuth.MakeRouteAuthErrorHandler(true)

		ctx := router.NewMockContext()
		require.NoError(t, handler(ctx, jwt.ErrTokenExpired))
		assert.True(t, ctx.NextCalled)
		assert.NoError(t, *captured)
	})
}

func TestTokenErrorClassifiers(t *testing.T) {
	assert.True(t, IsTokenExpiredError(ErrTokenExpired))
	assert.True(t, IsTokenExpiredError(jwt.ErrTokenExpired))
	assert.False(t, IsTokenExpiredError(jwt.ErrTokenMalformed))
	assert.False(t, IsTokenExpiredError(nil))

	assert.True(t, IsMalformedError(ErrTokenMalformed))
	assert.True(t, IsMalformedError(jwt.ErrTokenMalformed))
	assert.True(t, IsMalformedError(fmt.Errorf("missing or malformed session token")))
	assert.False(t, IsMalformedError(jwt.ErrTokenExpired))
	assert.False(t, IsMalformedError(nil))
}

func TestRouteAuthenticatorCookies(t *testing.T) {
	t.Run("login cookie carries the token", func(t *testing.T) {
		routeAuth := &RouteAuthenticator{Logger: quietLogger{}}

		var cookie *router.Cookie
		ctx := router.NewMockContext()
		ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
			cookie = args.Get(0).(*router.Cookie)
		}).Return()

		routeAuth.setCookieToken(ctx, "session-token", 24*time.Hour)

		require.NotNil(t, cookie)
		assert.Equal(t, SessionCookieName, cookie.Name)
		assert.Equal(t, "session-token", cookie.Value)
		assert.True(t, cookie.HTTPOnly)
		assert.True(t, cookie.Secure)
	})

	t.Run("logout expires the cookie", func(t *testing.T) {
		routeAuth := &RouteAuthenticator{Logger: quietLogger{}}

		var cookie *router.Cookie
		ctx := router.NewMockContext()
		ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
			cookie = args.Get(0).(*router.Cookie)
		}).Return()

		routeAuth.Logout(ctx)

		require.NotNil(t, cookie)
		assert.Equal(t, SessionCookieName, cookie.Name)
		assert.Empty(t, cookie.Value)
		assert.True(t, cookie.Expires.Before(time.Now()))
	})
}
