package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/pkg/database"
)

// apiKeyRepository implements APIKeyRepository interface
type apiKeyRepository struct {
	db database.DBTX
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db database.DBTX) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

// Create stores a new API key by its hash
func (r *apiKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	query := `
		INSERT INTO api_keys (id, user_id, name, prefix, key_hash, permissions, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	if key.Permissions == nil {
		key.Permissions = []string{}
	}

	_, err := r.db.ExecContext(ctx, query,
		key.ID,
		key.UserID,
		key.Name,
		key.Prefix,
		key.KeyHash,
		pq.Array(key.Permissions),
		key.IsActive,
		key.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("api key for user %s: %w", key.UserID, ErrDuplicateAPIKey)
		}
		return fmt.Errorf("failed to create api key: %w", err)
	}

	return nil
}

// GetByHash resolves a key together with its owner's plan snapshot
func (r *apiKeyRepository) GetByHash(ctx context.Context, keyHash string) (*domain.APIKeyOwner, error) {
	query := `
		SELECT k.id, k.user_id, k.name, k.prefix, k.key_hash, k.permissions, k.request_count,
		       k.last_used_at, k.is_active, k.created_at, u.plan, u.is_admin
		FROM api_keys k
		JOIN users u ON u.id = k.user_id
		WHERE k.key_hash = $1
	`

	owner := &domain.APIKeyOwner{}
	var plan string
	var lastUsedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, keyHash).Scan(
		&owner.Key.ID,
		&owner.Key.UserID,
		&owner.Key.Name,
		&owner.Key.Prefix,
		&owner.Key.KeyHash,
		pq.Array(&owner.Key.Permissions),
		&owner.Key.RequestCount,
		&lastUsedAt,
		&owner.Key.IsActive,
		&owner.Key.CreatedAt,
		&plan,
		&owner.IsAdmin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("api key not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}

	if lastUsedAt.Valid {
		owner.Key.LastUsedAt = &lastUsedAt.Time
	}
	owner.Plan = domain.Plan(plan)

	return owner, nil
}

// ListByUserID retrieves every key a user owns, newest first
func (r *apiKeyRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.APIKey, error) {
	query := `
		SELECT id, user_id, name, prefix, key_hash, permissions, request_count, last_used_at, is_active, created_at
		FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	keys := []*domain.APIKey{}
	for rows.Next() {
		key := &domain.APIKey{}
		var lastUsedAt sql.NullTime
		if err := rows.Scan(
			&key.ID,
			&key.UserID,
			&key.Name,
			&key.Prefix,
			&key.KeyHash,
			pq.Array(&key.Permissions),
			&key.RequestCount,
			&lastUsedAt,
			&key.IsActive,
			&key.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		if lastUsedAt.Valid {
			key.LastUsedAt = &lastUsedAt.Time
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate api keys: %w", err)
	}

	return keys, nil
}

// Deactivate disables a key owned by userID
func (r *apiKeyRepository) Deactivate(ctx context.Context, userID, keyID string) error {
	query := `UPDATE api_keys SET is_active = FALSE WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, keyID, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate api key: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("api key %s not found: %w", keyID, ErrNotFound)
	}

	return nil
}

// Touch records one use of a key
func (r *apiKeyRepository) Touch(ctx context.Context, keyID string, at time.Time) error {
	query := `UPDATE api_keys SET request_count = request_count + 1, last_used_at = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, keyID, at); err != nil {
		return fmt.Errorf("failed to touch api key: %w", err)
	}
	return nil
}
