package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	auth "github.com/salespoint/go-auth"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockIdentity implements auth.Identity for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() string {
	args := m.Called()
	return args.String(0)
}

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// testLogger is a no-op logger for tests that do not assert on logging.
type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockUserStore implements auth.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserStore) FindByID(ctx context.Context, id string) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserStore) Insert(ctx context.Context, record *auth.User) (*auth.User, error) {
	args := m.Called(ctx, record)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserStore) UpdatePassword(ctx context.Context, id string, passwordHash string) (*auth.User, error) {
	args := m.Called(ctx, id, passwordHash)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserStore) UpdateStatus(ctx context.Context, id string, status auth.UserStatus, suspendedAt *time.Time) (*auth.User, error) {
	args := m.Called(ctx, id, status, suspendedAt)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserStore) List(ctx context.Context) ([]*auth.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*auth.User)
	return users, args.Error(1)
}

func (m *MockUserStore) TrackAttemptedLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) TrackSuccessfulLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockUsers implements auth.Users
type MockUsers struct {
	MockUserStore
}

func (m *MockUsers) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*auth.User, error) {
	args := m.Called(ctx, tx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) FindByIDTx(ctx context.Context, tx bun.IDB, id string) (*auth.User, error) {
	args := m.Called(ctx, tx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) InsertTx(ctx context.Context, tx bun.IDB, record *auth.User) (*auth.User, error) {
	args := m.Called(ctx, tx, record)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id string, passwordHash string) (*auth.User, error) {
	args := m.Called(ctx, tx, id, passwordHash)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) UpdateStatusTx(ctx context.Context, tx bun.IDB, id string, status auth.UserStatus, suspendedAt *time.Time) (*auth.User, error) {
	args := m.Called(ctx, tx, id, status, suspendedAt)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) ListTx(ctx context.Context, tx bun.IDB) ([]*auth.User, error) {
	args := m.Called(ctx, tx)
	users, _ := args.Get(0).([]*auth.User)
	return users, args.Error(1)
}

func (m *MockUsers) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *auth.User) error {
	args := m.Called(ctx, tx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *auth.User) error {
	args := m.Called(ctx, tx, user)
	return args.Error(0)
}

func (m *MockUsers) Suspend(ctx context.Context, actor auth.ActorRef, user *auth.User, opts ...auth.TransitionOption) (*auth.User, error) {
	args := m.Called(ctx, actor, user, opts)
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

func (m *MockUsers) Reinstate(ctx context.Context, actor auth.ActorRef, user *auth.User, opts ...auth.TransitionOption) (*auth.User, error) {
	args := m.Called(ctx, actor, user, opts)
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

// MockRepositoryManager implements auth.RepositoryManager. RunInTx executes
// the callback directly with a zero transaction; the inner repositories are
// mocks that never touch it.
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Users() auth.Users {
	args := m.Called()
	return args.Get(0).(auth.Users)
}

func (m *MockRepositoryManager) Validate() error {
	return nil
}

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

// capturingSink records activity events for assertions.
type capturingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *capturingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *capturingSink) Events() []auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEvent, len(s.events))
	copy(out, s.events)
	return out
}
