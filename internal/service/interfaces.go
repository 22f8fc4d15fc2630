package service

import (
	"context"

	"github.com/prperemyshlev/identity-service/internal/domain"
)

// CredentialService defines methods for local accounts and passwords
type CredentialService interface {
	Register(ctx context.Context, email, password, displayName string) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, *domain.SessionToken, error)
	Logout(ctx context.Context, identity *domain.Identity) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, userID string) error
	ResendVerificationByEmail(ctx context.Context, email string) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	ChangePlan(ctx context.Context, userID, plan string) (*domain.User, error)
}

// OAuthService defines methods for provider sign-in
type OAuthService interface {
	Providers() []domain.OAuthProvider
	BeginAuthorization(ctx context.Context, provider string) (string, error)
	HandleCallback(ctx context.Context, provider, state, code string) (*OAuthResult, error)
}

// UsageService defines methods for quota-bound consumption
type UsageService interface {
	TryConsume(ctx context.Context, userID string, resource domain.Resource, delta int64) (int64, error)
	CurrentUsage(ctx context.Context, userID string) (*UsageReport, error)
}

// APIKeyService defines methods for API key management
type APIKeyService interface {
	Create(ctx context.Context, userID, name string, permissions []string) (*CreatedAPIKey, error)
	List(ctx context.Context, userID string) ([]*domain.APIKey, error)
	Revoke(ctx context.Context, userID, keyID string) error
}

// Authenticator resolves a bearer credential into an identity
type Authenticator interface {
	Validate(ctx context.Context, bearer string) (*domain.Identity, error)
}
