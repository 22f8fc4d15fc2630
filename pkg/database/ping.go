package database

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// pingAttempts bounds how long startup waits for a store that is still coming up
const pingAttempts = 5

// pingWithBackoff retries ping with exponential backoff starting at 200ms
func pingWithBackoff(ctx context.Context, ping func(context.Context) error) error {
	backoff := retry.WithMaxRetries(pingAttempts-1, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
