package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/utils"
	"go.uber.org/zap"
)

// revocationSkew is added to user-wide cut-offs to cover tokens issued by
// instances whose clock runs ahead of the one writing the cut-off
const revocationSkew = 2 * time.Second

// TokenIssuer issues stateless session tokens and revokes them early
type TokenIssuer struct {
	jwt         *utils.JWTManager
	revocations RevocationList
	metrics     *Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewTokenIssuer creates a new token issuer
func NewTokenIssuer(jwt *utils.JWTManager, revocations RevocationList, metrics *Metrics, logger *zap.Logger) *TokenIssuer {
	return &TokenIssuer{
		jwt:         jwt,
		revocations: revocations,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Issue signs a token carrying the user's identity snapshot. Its iat_ms
// lands after the user's current cut-off, which may lie in the future.
func (t *TokenIssuer) Issue(ctx context.Context, user *domain.User) (*domain.SessionToken, error) {
	cutoff, err := t.revocations.UserCutoff(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read revocation cut-off: %w", err)
	}

	token, _, err := t.jwt.GenerateAfter(user.ID, user.Plan, user.IsAdmin, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}
	return token, nil
}

// Verify checks signature, expiry and the revocation list. A token that
// cannot be checked against the list is rejected.
func (t *TokenIssuer) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := t.jwt.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := t.revocations.IsRevoked(ctx, claims.ID, claims.Subject, claims.IssuedAtMs)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, domain.ErrTokenRevoked
	}

	return &domain.Identity{
		UserID:    claims.Subject,
		Plan:      claims.Plan,
		IsAdmin:   claims.IsAdmin,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		Method:    domain.AuthMethodSession,
	}, nil
}

// RevokeToken invalidates one token for the rest of its lifetime
func (t *TokenIssuer) RevokeToken(ctx context.Context, identity *domain.Identity, reason domain.RevocationReason) error {
	if identity.TokenID == "" {
		return nil
	}
	ttl := identity.ExpiresAt.Sub(t.now())
	if err := t.revocations.RevokeToken(ctx, identity.TokenID, ttl, reason); err != nil {
		return err
	}
	t.metrics.revoked(ctx, reason)
	return nil
}

// RevokeUser invalidates every token issued to the user up to now, plus the
// skew margin. The entry outlives the longest token that could be covered.
func (t *TokenIssuer) RevokeUser(ctx context.Context, userID string, reason domain.RevocationReason) error {
	at := t.now().Add(revocationSkew)
	if err := t.revocations.RevokeUserBefore(ctx, userID, at, t.jwt.TTL()+revocationSkew, reason); err != nil {
		return err
	}
	t.metrics.revoked(ctx, reason)
	t.logger.Info("revoked user sessions", zap.String("user_id", userID), zap.String("reason", string(reason)))
	return nil
}
