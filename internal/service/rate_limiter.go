package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/identity-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RateLimitResult is the outcome of one Allow call
type RateLimitResult struct {
	Allowed bool
	// Remaining counts the events still allowed in the window after this one
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter answers whether another event under key fits in the window
type RateLimiter interface {
	// Allow records the event when allowed. RetryAfter is set when denied.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)
}

// slidingWindowScript trims, counts and records in one step, so concurrent
// callers on any instance cannot both take the last slot.
//
// KEYS[1] window key
// ARGV    now_ms, window_ms, limit, member
// returns {allowed, retry_after_ms, remaining}
var slidingWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. (now - window))
local count = redis.call('ZCARD', KEYS[1])
if count >= limit then
	local retry = window
	local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
	if oldest[2] then
		retry = tonumber(oldest[2]) + window - now
	end
	if retry < 0 then
		retry = 0
	end
	return {0, retry, 0}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window + 60000)
return {1, 0, limit - count - 1}
`)

// RedisRateLimiter is a sliding-window log kept in a sorted set per key
type RedisRateLimiter struct {
	redis *database.Redis
	now   func() time.Time
}

var _ RateLimiter = (*RedisRateLimiter)(nil)

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RedisRateLimiter {
	return &RedisRateLimiter{redis: redis, now: time.Now}
}

// Allow checks if an event is allowed based on rate limit
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	values, err := slidingWindowScript.Run(ctx, r.redis.Client,
		[]string{"ratelimit:" + key},
		r.now().UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to apply rate limit: %w", err)
	}
	if len(values) != 3 {
		return RateLimitResult{}, fmt.Errorf("unexpected rate limit reply: %v", values)
	}

	return RateLimitResult{
		Allowed:    values[0] == 1,
		RetryAfter: time.Duration(values[1]) * time.Millisecond,
		Remaining:  int(values[2]),
	}, nil
}
