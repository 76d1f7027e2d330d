package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	auth "github.com/salespoint/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newStoredUser(t *testing.T, email, password string) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	return &auth.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleUser,
		Status:       auth.UserStatusActive,
	}
}

func TestVerifyIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials return the identity", func(t *testing.T) {
		store := &MockUserStore{}
		user := newStoredUser(t, "cashier@example.com", "correct-horse")

		store.On("FindByEmail", ctx, "cashier@example.com").Return(user, nil)
		store.On("TrackSuccessfulLogin", ctx, user).Return(nil)

		provider := auth.NewUserProvider(store)
		identity, err := provider.VerifyIdentity(ctx, "cashier@example.com", "correct-horse")

		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, "cashier@example.com", identity.Email())
		assert.Equal(t, "USER", identity.Role())
		store.AssertExpectations(t)
	})

	t.Run("wrong password tracks the attempt", func(t *testing.T) {
		store := &MockUserStore{}
		user := newStoredUser(t, "cashier@example.com", "correct-horse")

		store.On("FindByEmail", ctx, "cashier@example.com").Return(user, nil)
		store.On("TrackAttemptedLogin", ctx, user).Return(nil)

		provider := auth.NewUserProvider(store)
		identity, err := provider.VerifyIdentity(ctx, "cashier@example.com", "wrong-password")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
		store.AssertExpectations(t)
	})

	t.Run("unknown email returns the same credential error", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("FindByEmail", ctx, "ghost@example.com").Return(nil, auth.ErrUserNotFound)

		provider := auth.NewUserProvider(store)
		identity, err := provider.VerifyIdentity(ctx, "ghost@example.com", "whatever")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})

	t.Run("empty email short circuits without touching the store", func(t *testing.T) {
		store := &MockUserStore{}

		provider := auth.NewUserProvider(store)
		_, err := provider.VerifyIdentity(ctx, "", "whatever")

		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
		store.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})

	t.Run("empty password short circuits without touching the store", func(t *testing.T) {
		store := &MockUserStore{}

		provider := auth.NewUserProvider(store)
		_, err := provider.VerifyIdentity(ctx, "cashier@example.com", "")

		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
		store.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})

	t.Run("suspended account is rejected before the password check", func(t *testing.T) {
		store := &MockUserStore{}
		user := newStoredUser(t, "cashier@example.com", "correct-horse")
		user.Status = auth.UserStatusSuspended

		store.On("FindByEmail", ctx, "cashier@example.com").Return(user, nil)

		provider := auth.NewUserProvider(store)
		_, err := provider.VerifyIdentity(ctx, "cashier@example.com", "correct-horse")

		assert.ErrorIs(t, err, auth.ErrUserSuspended)
	})

	t.Run("inactive account is rejected", func(t *testing.T) {
		store := &MockUserStore{}
		user := newStoredUser(t, "cashier@example.com", "correct-horse")
		user.Status = auth.UserStatusInactive

		store.On("FindByEmail", ctx, "cashier@example.com").Return(user, nil)

		provider := auth.NewUserProvider(store)
		_, err := provider.VerifyIdentity(ctx, "cashier@example.com", "correct-horse")

		assert.ErrorIs(t, err, auth.ErrUserInactive)
	})
}

func TestVerifyIdentityLoginAttempts(t *testing.T) {
	ctx := context.Background()

	t.Run("too many recent attempts triggers the cool down", func(t *testing.T) {
		store := &MockUserStore{}
		user := newStoredUser(t, "cashier@example.com", "correct-horse")
		user.LoginAttempts = auth.MaxLoginAttempts + 1
		user.LoginAttemptAt = timePtr(time.Now().Add(-time.Hour))

		store.On("FindByEmail", ctx, "cashier@example.com").Return(user, nil)

		provider := auth.NewUserProvider(store)
		_, err := provider.VerifyIdentity(ctx, "cashier@example.com", "correct-horse")

		assert.ErrorIs(t, err, auth.ErrTooManyLoginAttempts)
	})

	t.Run("attempts reset once the cool down window passes", func(t *testing.T) {
		store := &MockUserStore{}
		user := newStoredUser(t, "cashier@example.com", "correct-horse")
		user.LoginAttempts = auth.MaxLoginAttempts + 1
		user.LoginAttemptAt = timePtr(time.Now().Add(-25 * time.Hour))

		store.On("FindByEmail", ctx, "cashier@example.com").Return(user, nil)
		store.On("TrackSuccessfulLogin", ctx, user).Return(nil)

		provider := auth.NewUserProvider(store)
		identity, err := provider.VerifyIdentity(ctx, "cashier@example.com", "correct-horse")

		require.NoError(t, err)
		assert.NotNil(t, identity)
		assert.Equal(t, 0, user.LoginAttempts)
	})
}

func TestFindIdentityByIdentifier(t *testing.T) {
	ctx := context.Background()

	t.Run("uuid identifier routes to FindByID", func(t *testing.T) {
		store := &MockUserStore{}
		user := newStoredUser(t, "cashier@example.com", "correct-horse")
		id := user.ID.String()

		store.On("FindByID", ctx, id).Return(user, nil)

		provider := auth.NewUserProvider(store)
		identity, err := provider.FindIdentityByIdentifier(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, id, identity.ID())
		store.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})

	t.Run("email identifier routes to FindByEmail", func(t *testing.T) {
		store := &MockUserStore{}
		user := newStoredUser(t, "cashier@example.com", "correct-horse")

		store.On("FindByEmail", ctx, "cashier@example.com").Return(user, nil)

		provider := auth.NewUserProvider(store)
		identity, err := provider.FindIdentityByIdentifier(ctx, "cashier@example.com")

		require.NoError(t, err)
		assert.Equal(t, "cashier@example.com", identity.Email())
		store.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("unrecognized identifier never touches the store", func(t *testing.T) {
		store := &MockUserStore{}

		provider := auth.NewUserProvider(store)
		_, err := provider.FindIdentityByIdentifier(ctx, "not-an-id-or-email")

		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
		store.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})

	t.Run("suspended account cannot be resolved", func(t *testing.T) {
		store := &MockUserStore{}
		user := newStoredUser(t, "cashier@example.com", "correct-horse")
		user.Status = auth.UserStatusSuspended

		store.On("FindByEmail", ctx, "cashier@example.com").Return(user, nil)

		provider := auth.NewUserProvider(store)
		_, err := provider.FindIdentityByIdentifier(ctx, "cashier@example.com")

		assert.ErrorIs(t, err, auth.ErrUserSuspended)
	})
}

func timePtr(t time.Time) *time.Time {
	return &t
}
