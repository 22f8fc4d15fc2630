package repository

import (
	"context"
	"time"

	"github.com/prperemyshlev/identity-service/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	ClearPassword(ctx context.Context, userID string) error
	MarkEmailVerified(ctx context.Context, userID string) error
	UpdatePlan(ctx context.Context, userID string, plan domain.Plan) error
}

// OAuthIdentityRepository defines methods for linked provider accounts
type OAuthIdentityRepository interface {
	Create(ctx context.Context, identity *domain.OAuthIdentity) error
	GetByExternalID(ctx context.Context, provider domain.OAuthProvider, externalID string) (*domain.OAuthIdentity, error)
	ListByUserID(ctx context.Context, userID string) ([]*domain.OAuthIdentity, error)
}

// VerificationTokenRepository defines methods for single-use verification tokens
type VerificationTokenRepository interface {
	// InvalidateLive marks every unconsumed token of the purpose as consumed
	InvalidateLive(ctx context.Context, userID string, purpose domain.TokenPurpose, now time.Time) error
	Create(ctx context.Context, token *domain.VerificationToken) error
	// Consume sets consumed_at only if the token is live and returns its owner.
	// ErrNotFound means no live token matched.
	Consume(ctx context.Context, tokenHash string, purpose domain.TokenPurpose, now time.Time) (string, error)
	GetByHash(ctx context.Context, tokenHash string, purpose domain.TokenPurpose) (*domain.VerificationToken, error)
}

// APIKeyRepository defines methods for API key operations
type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByHash(ctx context.Context, keyHash string) (*domain.APIKeyOwner, error)
	ListByUserID(ctx context.Context, userID string) ([]*domain.APIKey, error)
	Deactivate(ctx context.Context, userID, keyID string) error
	Touch(ctx context.Context, keyID string, at time.Time) error
}

// UsageRepository defines methods for usage counters
type UsageRepository interface {
	// Increment adds delta to the resource counter only if the result stays
	// within limit. ok is false when the increment was refused.
	Increment(ctx context.Context, userID, period string, resource domain.Resource, delta, limit int64) (value int64, ok bool, err error)
	Get(ctx context.Context, userID, period string) (*domain.UsageCounter, error)
}
