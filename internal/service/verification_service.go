package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/repository"
	"github.com/prperemyshlev/identity-service/internal/utils"
	"github.com/sethvargo/go-retry"
)

const verificationTokenBytes = 32

// VerificationConfig holds token lifetimes and the resend window
type VerificationConfig struct {
	EmailTTL     time.Duration
	ResetTTL     time.Duration
	ResendWindow time.Duration
}

// ApplyFunc performs the state change a consumed token unlocks. It runs in
// the same transaction as the consumption; an error undoes both.
type ApplyFunc func(ctx context.Context, repos *repository.Repositories, userID string) error

// VerificationTokenIssuer issues and redeems single-use tokens
type VerificationTokenIssuer struct {
	tx      repository.Transactor
	limiter RateLimiter
	cfg     VerificationConfig
	now     func() time.Time
}

// NewVerificationTokenIssuer creates a new verification token issuer
func NewVerificationTokenIssuer(tx repository.Transactor, limiter RateLimiter, cfg VerificationConfig) *VerificationTokenIssuer {
	return &VerificationTokenIssuer{tx: tx, limiter: limiter, cfg: cfg, now: time.Now}
}

func (v *VerificationTokenIssuer) ttlFor(purpose domain.TokenPurpose) (time.Duration, error) {
	switch purpose {
	case domain.PurposeVerifyEmail:
		return v.cfg.EmailTTL, nil
	case domain.PurposeResetPassword:
		return v.cfg.ResetTTL, nil
	default:
		return 0, fmt.Errorf("unknown token purpose %q", purpose)
	}
}

// Issue retires any live token of the purpose and returns a fresh raw token
func (v *VerificationTokenIssuer) Issue(ctx context.Context, userID string, purpose domain.TokenPurpose) (string, error) {
	var raw string
	// Two concurrent issues can collide on the live-token index; the second
	// attempt retires the winner's token and succeeds.
	err := retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(10*time.Millisecond)), func(ctx context.Context) error {
		return v.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
			var err error
			raw, err = v.IssueWith(ctx, repos.VerificationToken, userID, purpose)
			if errors.Is(err, repository.ErrDuplicateToken) {
				return retry.RetryableError(err)
			}
			return err
		})
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

// IssueWith issues a token through a repository the caller already holds,
// typically one bound to the caller's transaction.
func (v *VerificationTokenIssuer) IssueWith(ctx context.Context, tokens repository.VerificationTokenRepository, userID string, purpose domain.TokenPurpose) (string, error) {
	ttl, err := v.ttlFor(purpose)
	if err != nil {
		return "", err
	}

	raw, err := utils.RandomToken(verificationTokenBytes)
	if err != nil {
		return "", err
	}

	now := v.now().UTC()
	if err := tokens.InvalidateLive(ctx, userID, purpose, now); err != nil {
		return "", err
	}

	token := &domain.VerificationToken{
		UserID:    userID,
		TokenHash: utils.HashToken(raw),
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := tokens.Create(ctx, token); err != nil {
		return "", err
	}

	return raw, nil
}

// IssueRateLimited issues a token at most once per resend window per user
func (v *VerificationTokenIssuer) IssueRateLimited(ctx context.Context, userID string, purpose domain.TokenPurpose) (string, error) {
	key := fmt.Sprintf("issue:%s:%s", purpose, userID)
	result, err := v.limiter.Allow(ctx, key, 1, v.cfg.ResendWindow)
	if err != nil {
		return "", err
	}
	if !result.Allowed {
		return "", fmt.Errorf("%w: retry in %s", domain.ErrRateLimited, result.RetryAfter.Round(time.Second))
	}
	return v.Issue(ctx, userID, purpose)
}

// Consume redeems a raw token and applies its state change atomically.
// Of any number of concurrent calls with the same token, one succeeds.
func (v *VerificationTokenIssuer) Consume(ctx context.Context, raw string, purpose domain.TokenPurpose, apply ApplyFunc) (string, error) {
	if raw == "" {
		return "", domain.ErrTokenNotFound
	}
	hash := utils.HashToken(raw)

	var userID string
	err := v.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		now := v.now().UTC()

		id, err := repos.VerificationToken.Consume(ctx, hash, purpose, now)
		if errors.Is(err, repository.ErrNotFound) {
			return v.explainMiss(ctx, repos.VerificationToken, hash, purpose, now)
		}
		if err != nil {
			return err
		}

		if err := apply(ctx, repos, id); err != nil {
			return err
		}
		userID = id
		return nil
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

// explainMiss tells apart the reasons a token could not be consumed
func (v *VerificationTokenIssuer) explainMiss(ctx context.Context, tokens repository.VerificationTokenRepository, hash string, purpose domain.TokenPurpose, now time.Time) error {
	token, err := tokens.GetByHash(ctx, hash, purpose)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.ErrTokenNotFound
	}
	if err != nil {
		return err
	}
	if token.ConsumedAt != nil {
		return domain.ErrTokenAlreadyUsed
	}
	if token.IsExpired(now) {
		return domain.ErrTokenExpired
	}
	// Live but not consumable: another transaction holds it.
	return domain.ErrTokenAlreadyUsed
}
