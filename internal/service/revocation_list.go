package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RevocationList records session tokens invalidated before their expiry
type RevocationList interface {
	// RevokeToken invalidates a single token for the rest of its life
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration, reason domain.RevocationReason) error
	// RevokeUserBefore invalidates every token of the user issued at or before at
	RevokeUserBefore(ctx context.Context, userID string, at time.Time, ttl time.Duration, reason domain.RevocationReason) error
	// UserCutoff returns the user-wide cut-off in unix milliseconds, 0 if none
	UserCutoff(ctx context.Context, userID string) (int64, error)
	// IsRevoked reports whether a token is covered by any entry
	IsRevoked(ctx context.Context, tokenID, userID string, issuedAtMs int64) (bool, error)
}

// RedisRevocationList keeps entries in Redis with TTLs matching token lifetimes
type RedisRevocationList struct {
	redis *database.Redis
}

var _ RevocationList = (*RedisRevocationList)(nil)

// NewRevocationList creates a new Redis-backed revocation list
func NewRevocationList(redis *database.Redis) *RedisRevocationList {
	return &RedisRevocationList{redis: redis}
}

func tokenRevocationKey(tokenID string) string {
	return "revocation:jti:" + tokenID
}

func userRevocationKey(userID string) string {
	return "revocation:user:" + userID
}

// RevokeToken adds a token id to the list
func (l *RedisRevocationList) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration, reason domain.RevocationReason) error {
	if ttl <= 0 {
		return nil
	}
	if err := l.redis.Client.Set(ctx, tokenRevocationKey(tokenID), string(reason), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// RevokeUserBefore stores a user-wide cut-off. A later cut-off never moves
// back: the stored value only grows.
func (l *RedisRevocationList) RevokeUserBefore(ctx context.Context, userID string, at time.Time, ttl time.Duration, reason domain.RevocationReason) error {
	key := userRevocationKey(userID)
	beforeMs := at.UnixMilli()

	err := l.redis.Client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "before_ms").Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current > beforeMs {
			beforeMs = current
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "before_ms", beforeMs, "reason", string(reason))
			pipe.Expire(ctx, key, ttl)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	return nil
}

// UserCutoff reads the stored before_ms of the user
func (l *RedisRevocationList) UserCutoff(ctx context.Context, userID string) (int64, error) {
	beforeMs, err := l.redis.Client.HGet(ctx, userRevocationKey(userID), "before_ms").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read user revocation: %w", err)
	}
	return beforeMs, nil
}

// IsRevoked checks the token entry and the user-wide cut-off in one round trip
func (l *RedisRevocationList) IsRevoked(ctx context.Context, tokenID, userID string, issuedAtMs int64) (bool, error) {
	pipe := l.redis.Client.Pipeline()
	tokenEntry := pipe.Exists(ctx, tokenRevocationKey(tokenID))
	cutoff := pipe.HGet(ctx, userRevocationKey(userID), "before_ms")
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("failed to check revocation list: %w", err)
	}

	if tokenEntry.Val() > 0 {
		return true, nil
	}

	raw, err := cutoff.Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read user revocation: %w", err)
	}

	beforeMs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("corrupt user revocation entry: %w", err)
	}
	return issuedAtMs <= beforeMs, nil
}
