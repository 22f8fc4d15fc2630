package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/pkg/database"
)

// oauthIdentityRepository implements OAuthIdentityRepository interface
type oauthIdentityRepository struct {
	db database.DBTX
}

// NewOAuthIdentityRepository creates a new OAuth identity repository
func NewOAuthIdentityRepository(db database.DBTX) OAuthIdentityRepository {
	return &oauthIdentityRepository{db: db}
}

// Create links a provider account to a user
func (r *oauthIdentityRepository) Create(ctx context.Context, identity *domain.OAuthIdentity) error {
	query := `
		INSERT INTO oauth_identities (id, user_id, provider, external_id, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		identity.ID,
		identity.UserID,
		string(identity.Provider),
		identity.ExternalID,
		identity.Email,
		identity.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s identity %s: %w", identity.Provider, identity.ExternalID, ErrDuplicateOAuthIdentity)
		}
		return fmt.Errorf("failed to create oauth identity: %w", err)
	}

	return nil
}

// GetByExternalID retrieves a link by provider and the provider's account id
func (r *oauthIdentityRepository) GetByExternalID(ctx context.Context, provider domain.OAuthProvider, externalID string) (*domain.OAuthIdentity, error) {
	query := `
		SELECT id, user_id, provider, external_id, email, created_at
		FROM oauth_identities
		WHERE provider = $1 AND external_id = $2
	`

	identity, err := scanOAuthIdentity(r.db.QueryRowContext(ctx, query, string(provider), externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s identity %s not found: %w", provider, externalID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get oauth identity: %w", err)
	}
	return identity, nil
}

// ListByUserID retrieves every provider linked to a user
func (r *oauthIdentityRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.OAuthIdentity, error) {
	query := `
		SELECT id, user_id, provider, external_id, email, created_at
		FROM oauth_identities
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list oauth identities: %w", err)
	}
	defer rows.Close()

	var identities []*domain.OAuthIdentity
	for rows.Next() {
		identity, err := scanOAuthIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan oauth identity: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate oauth identities: %w", err)
	}

	return identities, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOAuthIdentity(row rowScanner) (*domain.OAuthIdentity, error) {
	identity := &domain.OAuthIdentity{}
	var provider string
	var email sql.NullString

	if err := row.Scan(
		&identity.ID,
		&identity.UserID,
		&provider,
		&identity.ExternalID,
		&email,
		&identity.CreatedAt,
	); err != nil {
		return nil, err
	}

	identity.Provider = domain.OAuthProvider(provider)
	if email.Valid {
		identity.Email = &email.String
	}
	return identity, nil
}
