// internal/pkg/ratelimit/redis_limiter.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window request limiter backed by Redis.
type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Allow increments the counter for (identity, endpoint) and reports whether
// the caller is still within maxRequests for the current window.
func (l *Limiter) Allow(ctx context.Context, identityID int64, endpoint string, maxRequests int64, window time.Duration) (bool, error) {
	key := fmt.Sprintf("ratelimit:api:%d:%s", identityID, endpoint)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// Set expiration on first attempt
	if count == 1 {
		l.client.Expire(ctx, key, window)
	}

	return count <= maxRequests, nil
}

// Reset clears the counter for (identity, endpoint).
func (l *Limiter) Reset(ctx context.Context, identityID int64, endpoint string) error {
	key := fmt.Sprintf("ratelimit:api:%d:%s", identityID, endpoint)
	return l.client.Del(ctx, key).Err()
}
