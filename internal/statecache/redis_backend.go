package statecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisBackend stores entries in Redis under a key prefix. Keys also
// carry a Redis expiry so abandoned entries disappear on their own.
type RedisBackend struct {
	client     redisClient
	prefix     string
	expiration time.Duration
}

// NewRedisBackend creates a RedisBackend. prefix namespaces the keys.
func NewRedisBackend(client *redis.Client, prefix string, expiration time.Duration) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix, expiration: expiration}
}

func (b *RedisBackend) key(key string) string {
	return b.prefix + ":" + key
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis.Get(%s) > %w", b.key(key), err)
	}
	return data, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, b.key(key), value, b.expiration).Err(); err != nil {
		return fmt.Errorf("redis.Set(%s) > %w", b.key(key), err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("redis.Del(%s) > %w", b.key(key), err)
	}
	return nil
}
