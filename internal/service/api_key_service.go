package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/repository"
	"github.com/prperemyshlev/identity-service/internal/utils"
	"go.uber.org/zap"
)

const maxAPIKeyNameLength = 100

// API key permissions
const (
	PermImagesRead   = "images:read"
	PermImagesWrite  = "images:write"
	PermFoldersRead  = "folders:read"
	PermFoldersWrite = "folders:write"
	PermUsageRead    = "usage:read"
)

// APIKeyPermissions lists every permission a key can hold
func APIKeyPermissions() []string {
	return []string{PermImagesRead, PermImagesWrite, PermFoldersRead, PermFoldersWrite, PermUsageRead}
}

// ConsumePermission names the permission an API key needs to reserve quota
// of the resource. api_calls needs none since every key request spends it.
func ConsumePermission(resource domain.Resource) (string, bool) {
	switch resource {
	case domain.ResourceImages, domain.ResourceStorage:
		return PermImagesWrite, true
	case domain.ResourceFolders:
		return PermFoldersWrite, true
	default:
		return "", false
	}
}

// CreatedAPIKey carries the raw key, which is shown only at creation
type CreatedAPIKey struct {
	Key    *domain.APIKey
	RawKey string
}

// apiKeyService implements APIKeyService interface
type apiKeyService struct {
	keys   repository.APIKeyRepository
	logger *zap.Logger
}

// NewAPIKeyService creates a new API key service
func NewAPIKeyService(keys repository.APIKeyRepository, logger *zap.Logger) APIKeyService {
	return &apiKeyService{keys: keys, logger: logger}
}

// Create issues a new key. An empty permission list grants every permission.
func (s *apiKeyService) Create(ctx context.Context, userID, name string, permissions []string) (*CreatedAPIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "name is required")
	}
	if len(name) > maxAPIKeyNameLength {
		return nil, domain.NewValidationError("name", fmt.Sprintf("name must be at most %d characters", maxAPIKeyNameLength))
	}

	perms, err := normalizePermissions(permissions)
	if err != nil {
		return nil, err
	}

	raw, prefix, err := utils.GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	key := &domain.APIKey{
		UserID:      userID,
		Name:        name,
		Prefix:      prefix,
		KeyHash:     utils.HashToken(raw),
		Permissions: perms,
		IsActive:    true,
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to create api key: %w", err)
	}

	s.logger.Info("api key created", zap.String("user_id", userID), zap.String("api_key_id", key.ID))
	return &CreatedAPIKey{Key: key, RawKey: raw}, nil
}

// List returns the user's keys, newest first
func (s *apiKeyService) List(ctx context.Context, userID string) ([]*domain.APIKey, error) {
	return s.keys.ListByUserID(ctx, userID)
}

// Revoke deactivates one of the user's keys
func (s *apiKeyService) Revoke(ctx context.Context, userID, keyID string) error {
	if err := s.keys.Deactivate(ctx, userID, keyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrAPIKeyNotFound
		}
		return err
	}

	s.logger.Info("api key revoked", zap.String("user_id", userID), zap.String("api_key_id", keyID))
	return nil
}

func normalizePermissions(permissions []string) ([]string, error) {
	if len(permissions) == 0 {
		return APIKeyPermissions(), nil
	}

	known := APIKeyPermissions()
	out := make([]string, 0, len(permissions))
	for _, p := range permissions {
		p = strings.ToLower(strings.TrimSpace(p))
		if !slices.Contains(known, p) {
			return nil, domain.NewValidationError("permissions", fmt.Sprintf("unknown permission %q", p))
		}
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out, nil
}
