package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// MaxLoginAttempts is the maximum number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// UserProvider verifies credentials against the user store. It is the only
// component that sees plaintext passwords, and it returns a single
// credential error for unknown email, wrong password, and empty input alike
// so the login surface cannot be used to enumerate accounts.
type UserProvider struct {
	store  UserStore
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity will find the user, compare the password, and return the
// identity projection. The projection never carries the password hash.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	if email == "" || password == "" {
		return nil, ErrMismatchedHashAndPassword
	}

	user, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) || errors.Is(err, ErrUserNotFound) {
			// Burn a hash comparison anyway so the miss costs roughly the
			// same as a mismatch.
			_ = ComparePasswordAndHash(password, RandomPasswordHash())
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ensureAuthenticatableUser(user); err != nil {
		return nil, err
	}

	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	// if we have too many attempts in the given window, cool off!
	if user.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := u.store.TrackAttemptedLogin(ctx, user); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}

		return nil, ErrMismatchedHashAndPassword
	}

	if err := u.store.TrackSuccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login", "error", err)
	}

	return identityFromUser(user), nil
}

// FindIdentityByIdentifier resolves a user by id or email without touching
// credentials.
func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	var user *User
	var err error

	switch {
	case isUUID(identifier):
		user, err = u.store.FindByID(ctx, identifier)
	case isEmail(identifier):
		user, err = u.store.FindByEmail(ctx, identifier)
	default:
		return nil, ErrIdentityNotFound
	}

	if err != nil {
		return nil, err
	}

	if err := ensureAuthenticatableUser(user); err != nil {
		return nil, err
	}

	return identityFromUser(user), nil
}

var _ IdentityProvider = (*UserProvider)(nil)

type authIdentity struct {
	id     string
	email  string
	role   string
	status UserStatus
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Role() string {
	return a.role
}

func (a authIdentity) Status() UserStatus {
	if a.status == "" {
		return UserStatusActive
	}
	return a.status
}

var _ Identity = authIdentity{}

func identityFromUser(user *User) authIdentity {
	return authIdentity{
		id:     user.ID.String(),
		email:  user.Email,
		role:   string(user.Role),
		status: user.Status,
	}
}

func ensureAuthenticatableUser(user *User) error {
	if user == nil {
		return ErrIdentityNotFound
	}

	user.EnsureStatus()
	if err := statusAuthError(user.Status); err != nil {
		return err
	}

	if !user.Role.IsValid() {
		return errors.New("user has an unknown or invalid role", errors.CategoryAuth).
			WithTextCode("INVALID_ROLE").
			WithMetadata(map[string]any{"role": user.Role, "user_id": user.ID.String()})
	}

	return nil
}
