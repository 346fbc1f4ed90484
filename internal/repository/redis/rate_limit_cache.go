package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"blog-service/internal/util"
)

const rateLimitPrefix = "rate_limit:"

// RateLimitCache counts requests per key in fixed windows that start at
// the first hit.
type RateLimitCache struct {
	client KV
}

func NewRateLimitCache(client KV) *RateLimitCache {
	return &RateLimitCache{client: client}
}

// Allow counts one hit for key and reports whether the window still has
// room, with the time left in the window.
func (c *RateLimitCache) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	k := rateLimitPrefix + key
	count, err := c.client.IncrInWindow(ctx, k, window)
	if err != nil {
		util.Error("Failed to increment rate limit counter",
			zap.String("key", key),
			zap.Error(err))
		return false, 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count <= int64(limit) {
		return true, 0, nil
	}

	ttl, err := c.client.TTL(ctx, k)
	if err != nil || ttl < 0 {
		ttl = window
	}
	util.Debug("Rate limit exceeded",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Duration("retry_after", ttl))
	return false, ttl, nil
}
