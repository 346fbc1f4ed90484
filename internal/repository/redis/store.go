package redis

import (
	"context"
	"time"
)

// KV is the subset of client.RedisClient the caches use.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	IncrWithExpire(ctx context.Context, key string, expiration time.Duration) (int64, error)
	IncrInWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

const opTimeout = 5 * time.Second
