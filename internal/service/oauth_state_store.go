package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// StateStore keeps OAuth state nonces, with their PKCE verifiers, between
// redirect and callback
type StateStore interface {
	Save(ctx context.Context, provider domain.OAuthProvider, state, verifier string, ttl time.Duration) error
	// Consume removes the nonce and returns its verifier. ok is false when
	// no live nonce matched.
	Consume(ctx context.Context, provider domain.OAuthProvider, state string) (verifier string, ok bool, err error)
}

// RedisStateStore stores nonces as expiring keys scoped to the provider
type RedisStateStore struct {
	redis *database.Redis
}

var _ StateStore = (*RedisStateStore)(nil)

// NewStateStore creates a Redis-backed state store
func NewStateStore(redis *database.Redis) *RedisStateStore {
	return &RedisStateStore{redis: redis}
}

func stateKey(provider domain.OAuthProvider, state string) string {
	return fmt.Sprintf("oauth:state:%s:%s", provider, state)
}

// Save persists a nonce for one callback
func (s *RedisStateStore) Save(ctx context.Context, provider domain.OAuthProvider, state, verifier string, ttl time.Duration) error {
	if err := s.redis.Client.Set(ctx, stateKey(provider, state), verifier, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// Consume uses GETDEL so a nonce can be redeemed at most once
func (s *RedisStateStore) Consume(ctx context.Context, provider domain.OAuthProvider, state string) (string, bool, error) {
	verifier, err := s.redis.Client.GetDel(ctx, stateKey(provider, state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return verifier, true, nil
}
