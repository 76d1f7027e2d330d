package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager bundles the persistence surface the auth core needs: the
// user repository plus transaction scoping for the multi-step mutations.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
}

type repositoryManager struct {
	db    *bun.DB
	users Users
}

func NewRepositoryManager(db *bun.DB, opts ...UsersOption) RepositoryManager {
	return &repositoryManager{
		db:    db,
		users: NewUsersRepository(db, opts...),
	}
}

func (m repositoryManager) Validate() error {
	if m.db == nil {
		return errors.New("repository manager requires a database handle")
	}
	if m.users == nil {
		return errors.New("repository manager requires a users repository")
	}
	return nil
}

func (m repositoryManager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx opens a transaction for the callback. A context already past its
// deadline short-circuits before touching the database.
func (m repositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m repositoryManager) Users() Users {
	return m.users
}
