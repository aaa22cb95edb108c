package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend is the narrow contract the report cache needs from a cache store.
// A nil value means the key is absent; errors are for backend failures only,
// callers treat them as a miss.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// RedisBackend implements Backend on top of a go-redis client.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := b.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.client.Set(ctx, key, value, ttl).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.client.Del(ctx, keys...).Err()
}

// DeleteByPrefix walks matching keys with SCAN and removes them. MATCH keeps
// the walk server-side, so invalidating the query caches never blocks Redis
// the way KEYS would.
func (b *RedisBackend) DeleteByPrefix(ctx context.Context, prefix string) error {
	iter := b.client.Scan(ctx, 0, prefix+"*", 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) == 0 {
		return nil
	}
	return b.client.Del(ctx, keys...).Err()
}
