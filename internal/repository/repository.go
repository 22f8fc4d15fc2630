package repository

import (
	"context"
	"database/sql"

	"github.com/prperemyshlev/identity-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User              UserRepository
	OAuthIdentity     OAuthIdentityRepository
	VerificationToken VerificationTokenRepository
	APIKey            APIKeyRepository
	Usage             UsageRepository
}

// NewRepositories creates all repositories on top of a pool or a transaction
func NewRepositories(db database.DBTX) *Repositories {
	return &Repositories{
		User:              NewUserRepository(db),
		OAuthIdentity:     NewOAuthIdentityRepository(db),
		VerificationToken: NewVerificationTokenRepository(db),
		APIKey:            NewAPIKeyRepository(db),
		Usage:             NewUsageRepository(db),
	}
}

// Transactor runs a unit of work against repositories bound to one transaction
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
}

type sqlTransactor struct {
	db *sql.DB
}

// NewTransactor creates a Transactor backed by database/sql transactions
func NewTransactor(db *sql.DB) Transactor {
	return &sqlTransactor{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise
func (t *sqlTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error {
	return database.WithTx(ctx, t.db, nil, func(ctx context.Context, tx database.DBTX) error {
		return fn(ctx, NewRepositories(tx))
	})
}
