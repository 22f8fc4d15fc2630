package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/repository"
	"github.com/prperemyshlev/identity-service/internal/utils"
	"go.uber.org/zap"
)

const apiKeyTouchTimeout = 2 * time.Second

// SessionValidator turns a bearer credential into a verified identity
type SessionValidator struct {
	tokens  *TokenIssuer
	apiKeys repository.APIKeyRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewSessionValidator creates a new session validator
func NewSessionValidator(tokens *TokenIssuer, apiKeys repository.APIKeyRepository, logger *zap.Logger) *SessionValidator {
	return &SessionValidator{tokens: tokens, apiKeys: apiKeys, logger: logger, now: time.Now}
}

// Validate resolves a session token or an API key. It does nothing beyond
// identity resolution.
func (v *SessionValidator) Validate(ctx context.Context, bearer string) (*domain.Identity, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return nil, domain.ErrUnauthenticated
	}

	if utils.IsAPIKey(bearer) {
		return v.validateAPIKey(ctx, bearer)
	}
	return v.tokens.Verify(ctx, bearer)
}

func (v *SessionValidator) validateAPIKey(ctx context.Context, raw string) (*domain.Identity, error) {
	owner, err := v.apiKeys.GetByHash(ctx, utils.HashToken(raw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrAPIKeyNotFound
		}
		return nil, err
	}
	if !owner.Key.IsActive {
		return nil, domain.ErrAPIKeyInactive
	}

	keyID := owner.Key.ID
	usedAt := v.now().UTC()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), apiKeyTouchTimeout)
		defer cancel()
		if err := v.apiKeys.Touch(ctx, keyID, usedAt); err != nil {
			v.logger.Warn("failed to record api key use", zap.String("api_key_id", keyID), zap.Error(err))
		}
	}()

	return &domain.Identity{
		UserID:      owner.Key.UserID,
		Plan:        owner.Plan,
		IsAdmin:     owner.IsAdmin,
		Method:      domain.AuthMethodAPIKey,
		APIKeyID:    keyID,
		Permissions: owner.Key.Permissions,
	}, nil
}
