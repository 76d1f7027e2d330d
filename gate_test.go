package auth_test

import (
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	auth "github.com/salespoint/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate(t *testing.T) (*auth.Gate, auth.TokenService) {
	t.Helper()

	service, err := auth.NewTokenService([]byte("gate-test-key"), 24, "pos", nil, testLogger{})
	require.NoError(t, err)

	return auth.NewGate(service, auth.WithGateLogger(testLogger{})), service
}

func TestGateResolveCaller(t *testing.T) {
	gate, service := newTestGate(t)

	t.Run("empty credential resolves to anonymous", func(t *testing.T) {
		caller := gate.ResolveCaller("")

		require.NotNil(t, caller)
		assert.False(t, caller.Authenticated())
		assert.Empty(t, caller.GetUserID())
	})

	t.Run("garbage credential resolves to anonymous", func(t *testing.T) {
		caller := gate.ResolveCaller("not.a.token")

		require.NotNil(t, caller)
		assert.False(t, caller.Authenticated())
	})

	t.Run("token signed with a different key resolves to anonymous", func(t *testing.T) {
		other, err := auth.NewTokenService([]byte("other-key"), 24, "pos", nil, testLogger{})
		require.NoError(t, err)

		token, err := other.Generate(newMockIdentity("user-123", "cashier@example.com", "USER"))
		require.NoError(t, err)

		caller := gate.ResolveCaller(token)
		assert.False(t, caller.Authenticated())
	})

	t.Run("expired token resolves to anonymous", func(t *testing.T) {
		now := time.Now()
		expired, err := service.SignClaims(&auth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "pos",
				Subject:   "user-123",
				IssuedAt:  jwt.NewNumericDate(now.Add(-48 * time.Hour)),
				ExpiresAt: jwt.NewNumericDate(now.Add(-24 * time.Hour)),
			},
			UID:      "user-123",
			UserRole: "USER",
		})
		require.NoError(t, err)

		caller := gate.ResolveCaller(expired)
		assert.False(t, caller.Authenticated())
	})

	t.Run("valid token resolves to an authenticated caller", func(t *testing.T) {
		token, err := service.Generate(newMockIdentity("user-123", "cashier@example.com", "MANAGER"))
		require.NoError(t, err)

		caller := gate.ResolveCaller(token)

		require.True(t, caller.Authenticated())
		assert.Equal(t, "user-123", caller.GetUserID())
		assert.Equal(t, "cashier@example.com", caller.Email)
		assert.Equal(t, auth.RoleManager, caller.Role)
		assert.Equal(t, "pos", caller.Issuer)
		require.NotNil(t, caller.ExpirationDate)
		assert.True(t, caller.ExpirationDate.After(time.Now()))
	})
}

func TestGateRequireAuthenticated(t *testing.T) {
	gate, service := newTestGate(t)

	t.Run("anonymous caller is rejected", func(t *testing.T) {
		err := gate.RequireAuthenticated(auth.AnonymousCaller())
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("authenticated caller passes", func(t *testing.T) {
		token, err := service.Generate(newMockIdentity("user-123", "cashier@example.com", "USER"))
		require.NoError(t, err)

		caller := gate.ResolveCaller(token)
		assert.NoError(t, gate.RequireAuthenticated(caller))
	})
}

func TestGateRequireRole(t *testing.T) {
	gate, service := newTestGate(t)

	callerWithRole := func(role string) *auth.CallerContext {
		token, err := service.Generate(newMockIdentity("user-123", "someone@example.com", role))
		require.NoError(t, err)
		return gate.ResolveCaller(token)
	}

	t.Run("matching role passes", func(t *testing.T) {
		err := gate.RequireRole(callerWithRole("ADMIN"), auth.RoleAdmin)
		assert.NoError(t, err)
	})

	t.Run("manager does not satisfy an admin gate", func(t *testing.T) {
		err := gate.RequireRole(callerWithRole("MANAGER"), auth.RoleAdmin)
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("admin does not satisfy a user gate", func(t *testing.T) {
		err := gate.RequireRole(callerWithRole("ADMIN"), auth.RoleUser)
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("anonymous caller fails authentication before the role check", func(t *testing.T) {
		err := gate.RequireRole(auth.AnonymousCaller(), auth.RoleUser)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})
}

func TestGateRequireSelf(t *testing.T) {
	gate, service := newTestGate(t)

	callerFor := func(id, role string) *auth.CallerContext {
		token, err := service.Generate(newMockIdentity(id, "someone@example.com", role))
		require.NoError(t, err)
		return gate.ResolveCaller(token)
	}

	t.Run("caller targeting their own id passes", func(t *testing.T) {
		err := gate.RequireSelf(callerFor("user-123", "USER"), "user-123")
		assert.NoError(t, err)
	})

	t.Run("caller targeting another id is rejected", func(t *testing.T) {
		err := gate.RequireSelf(callerFor("user-123", "USER"), "user-456")
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("admin role grants no override", func(t *testing.T) {
		err := gate.RequireSelf(callerFor("admin-1", "ADMIN"), "user-456")
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("empty target id is rejected", func(t *testing.T) {
		err := gate.RequireSelf(callerFor("user-123", "USER"), "")
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("anonymous caller is rejected", func(t *testing.T) {
		err := gate.RequireSelf(auth.AnonymousCaller(), "user-123")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})
}

func TestGateDenialsLeaveSentinelsClean(t *testing.T) {
	gate, service := newTestGate(t)

	callerFor := func(id, role string) *auth.CallerContext {
		token, err := service.Generate(newMockIdentity(id, "someone@example.com", role))
		require.NoError(t, err)
		return gate.ResolveCaller(token)
	}

	t.Run("denial metadata never reaches the shared sentinel", func(t *testing.T) {
		err := gate.RequireRole(callerFor("user-1", "MANAGER"), auth.RoleAdmin)
		require.ErrorIs(t, err, auth.ErrForbidden)

		assert.Empty(t, auth.ErrForbidden.Metadata)
	})

	t.Run("metadata does not bleed between unrelated denials", func(t *testing.T) {
		roleErr := gate.RequireRole(callerFor("user-1", "MANAGER"), auth.RoleAdmin)
		selfErr := gate.RequireSelf(callerFor("user-1", "USER"), "user-2")

		var roleRich *goerrors.Error
		require.ErrorAs(t, roleErr, &roleRich)
		assert.Contains(t, roleRich.Metadata, "required_role")
		assert.NotContains(t, roleRich.Metadata, "reason")

		var selfRich *goerrors.Error
		require.ErrorAs(t, selfErr, &selfRich)
		assert.Contains(t, selfRich.Metadata, "reason")
		assert.NotContains(t, selfRich.Metadata, "required_role")

		assert.Empty(t, auth.ErrForbidden.Metadata)
	})

	t.Run("concurrent denials share no state", func(t *testing.T) {
		manager := callerFor("user-1", "MANAGER")
		cashier := callerFor("user-2", "USER")

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					_ = gate.RequireRole(manager, auth.RoleAdmin)
					_ = gate.RequireSelf(cashier, "user-1")
				}
			}()
		}
		wg.Wait()

		assert.Empty(t, auth.ErrForbidden.Metadata)
	})
}
