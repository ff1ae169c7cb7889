package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const DefaultTTL = 24 * time.Hour

// RedisGuard claims idempotency keys in redis. A key stays claimed until it expires or is released.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

func redisKey(key string) string {
	return fmt.Sprintf("idempotent-key:%s", key)
}

// Acquire claims key and reports false when another request already holds it.
func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, redisKey(key), "exists", g.ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "claim idempotency key %s", key)
	}
	return ok, nil
}

// Release frees key so the same request can be retried.
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.rdb.Del(ctx, redisKey(key)).Err(); err != nil {
		return errors.Wrapf(err, "release idempotency key %s", key)
	}
	return nil
}
