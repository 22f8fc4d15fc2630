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

// verificationTokenRepository implements VerificationTokenRepository interface
type verificationTokenRepository struct {
	db database.DBTX
}

// NewVerificationTokenRepository creates a new verification token repository
func NewVerificationTokenRepository(db database.DBTX) VerificationTokenRepository {
	return &verificationTokenRepository{db: db}
}

// InvalidateLive retires every outstanding token of the given purpose
func (r *verificationTokenRepository) InvalidateLive(ctx context.Context, userID string, purpose domain.TokenPurpose, now time.Time) error {
	query := `
		UPDATE verification_tokens
		SET consumed_at = $3
		WHERE user_id = $1 AND purpose = $2 AND consumed_at IS NULL
	`

	if _, err := r.db.ExecContext(ctx, query, userID, string(purpose), now); err != nil {
		return fmt.Errorf("failed to invalidate verification tokens: %w", err)
	}
	return nil
}

// Create stores a new token. Only the hash is persisted.
func (r *verificationTokenRepository) Create(ctx context.Context, token *domain.VerificationToken) error {
	query := `
		INSERT INTO verification_tokens (id, user_id, token_hash, purpose, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		string(token.Purpose),
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("verification token for user %s: %w", token.UserID, ErrDuplicateToken)
		}
		return fmt.Errorf("failed to create verification token: %w", err)
	}

	return nil
}

// Consume is a compare-and-swap on consumed_at: only one caller can win
func (r *verificationTokenRepository) Consume(ctx context.Context, tokenHash string, purpose domain.TokenPurpose, now time.Time) (string, error) {
	query := `
		UPDATE verification_tokens
		SET consumed_at = $3
		WHERE token_hash = $1 AND purpose = $2 AND consumed_at IS NULL AND expires_at > $3
		RETURNING user_id
	`

	var userID string
	err := r.db.QueryRowContext(ctx, query, tokenHash, string(purpose), now).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("no live %s token: %w", purpose, ErrNotFound)
		}
		return "", fmt.Errorf("failed to consume verification token: %w", err)
	}

	return userID, nil
}

// GetByHash retrieves a token regardless of its state
func (r *verificationTokenRepository) GetByHash(ctx context.Context, tokenHash string, purpose domain.TokenPurpose) (*domain.VerificationToken, error) {
	query := `
		SELECT id, user_id, token_hash, purpose, expires_at, consumed_at, created_at
		FROM verification_tokens
		WHERE token_hash = $1 AND purpose = $2
	`

	token := &domain.VerificationToken{}
	var p string
	var consumedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, tokenHash, string(purpose)).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&p,
		&token.ExpiresAt,
		&consumedAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s token not found: %w", purpose, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get verification token: %w", err)
	}

	token.Purpose = domain.TokenPurpose(p)
	if consumedAt.Valid {
		token.ConsumedAt = &consumedAt.Time
	}

	return token, nil
}
