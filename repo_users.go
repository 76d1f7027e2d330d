package auth

import (
	"context"
	"database/sql"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the bun backed user repository. It satisfies UserStore and adds
// transaction-scoped variants for callers composing larger units of work.
type Users interface {
	UserStore

	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id string) (*User, error)
	InsertTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, id string, passwordHash string) (*User, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id string, status UserStatus, suspendedAt *time.Time) (*User, error)
	ListTx(ctx context.Context, tx bun.IDB) ([]*User, error)
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error

	Suspend(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
	Reinstate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db                  *bun.DB
	stateMachine        UserStateMachine
	stateMachineOptions []StateMachineOption
}

var (
	_ Users     = (*users)(nil)
	_ UserStore = (*users)(nil)
)

type UsersOption func(*users)

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

// WithUsersStateMachineOptions configures the lazily built lifecycle machine.
func WithUsersStateMachineOptions(options ...StateMachineOption) UsersOption {
	return func(u *users) {
		if len(options) == 0 {
			return
		}
		u.stateMachineOptions = append(u.stateMachineOptions, options...)
		u.stateMachine = nil
	}
}

func WithUsersStateMachine(sm UserStateMachine) UsersOption {
	return func(u *users) {
		u.stateMachine = sm
	}
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, mapFindError(err, map[string]any{"email": email})
	}

	return record, nil
}

func (a *users) FindByID(ctx context.Context, id string) (*User, error) {
	return a.FindByIDTx(ctx, a.db, id)
}

func (a *users) FindByIDTx(ctx context.Context, tx bun.IDB, id string) (*User, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, annotate(ErrUserNotFound, map[string]any{"id": id})
	}

	record := &User{}
	err = tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", uid).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, mapFindError(err, map[string]any{"id": id})
	}

	return record, nil
}

func (a *users) Insert(ctx context.Context, record *User) (*User, error) {
	return a.InsertTx(ctx, a.db, record)
}

// InsertTx persists a new user. The unique index on email is the authoritative
// duplicate guard; a violation surfaces as ErrEmailTaken regardless of any
// lookup the caller ran beforehand.
func (a *users) InsertTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record)

	created, err := a.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, annotate(ErrEmailTaken, map[string]any{
				"email": record.Email,
			})
		}
		return nil, err
	}

	return created, nil
}

func (a *users) UpdatePassword(ctx context.Context, id string, passwordHash string) (*User, error) {
	return a.UpdatePasswordTx(ctx, a.db, id, passwordHash)
}

func (a *users) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id string, passwordHash string) (*User, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, annotate(ErrUserNotFound, map[string]any{"id": id})
	}

	record := &User{
		PasswordHash: passwordHash,
		UpdatedAt:    nowPtr(),
	}

	res, err := tx.NewUpdate().
		Model(record).
		Column("password_hash", "updated_at").
		Where("?TableAlias.id = ?", uid).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, annotate(ErrUserNotFound, map[string]any{"id": id})
	}

	return record, nil
}

func (a *users) UpdateStatus(ctx context.Context, id string, status UserStatus, suspendedAt *time.Time) (*User, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status, suspendedAt)
}

func (a *users) UpdateStatusTx(ctx context.Context, tx bun.IDB, id string, status UserStatus, suspendedAt *time.Time) (*User, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, annotate(ErrUserNotFound, map[string]any{"id": id})
	}

	record := &User{
		Status:      status,
		SuspendedAt: suspendedAt,
		UpdatedAt:   nowPtr(),
	}

	res, err := tx.NewUpdate().
		Model(record).
		Column("status", "suspended_at", "updated_at").
		Where("?TableAlias.id = ?", uid).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, annotate(ErrUserNotFound, map[string]any{"id": id})
	}

	return record, nil
}

func (a *users) List(ctx context.Context) ([]*User, error) {
	return a.ListTx(ctx, a.db)
}

func (a *users) ListTx(ctx context.Context, tx bun.IDB) ([]*User, error) {
	records := []*User{}
	err := tx.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	// NOTE: Updating using the ORM wont reset the zero valued
	// login_attempt_at and login_attempts columns.
	loggedInAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	return a.TrackAttemptedLoginTx(ctx, a.db, user)
}

func (a *users) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(user.ID.String()),
	}

	record := &User{}
	record.ID = user.ID
	record.LoginAttempts = user.LoginAttempts + 1
	now := time.Now()
	record.LoginAttemptAt = &now

	_, err := a.Repository.UpdateTx(ctx, tx, record, criteria...)

	return err
}

func (a *users) Suspend(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusSuspended, opts...)
}

func (a *users) Reinstate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusActive, opts...)
}

func (a *users) lifecycleMachine() UserStateMachine {
	if a.stateMachine == nil {
		a.stateMachine = NewUserStateMachine(a, a.stateMachineOptions...)
	}
	return a.stateMachine
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func mapFindError(err error, metadata map[string]any) error {
	if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
		return annotate(ErrUserNotFound, metadata)
	}
	return err
}

// isUniqueViolation inspects driver errors for unique index violations. The
// message forms below cover sqlite, postgres and mysql.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "Error 1062")
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
