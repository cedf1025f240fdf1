package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores session keys in Redis.
type RedisBackend struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

// NewRedisBackend returns a backend over client. A positive ttl expires both
// keys together; zero keeps them until logout.
func NewRedisBackend(client redis.UniversalClient, ttl time.Duration) *RedisBackend {
	return &RedisBackend{redis: client, ttl: ttl}
}

// Get reads keys with a single MGET.
func (b *RedisBackend) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := b.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	for i, v := range values {
		switch s := v.(type) {
		case string:
			out[keys[i]] = s
		case []byte:
			out[keys[i]] = string(s)
		}
	}
	return out, nil
}

// Put writes entries in one MULTI/EXEC transaction.
func (b *RedisBackend) Put(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := b.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, k, v, b.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Replace overwrites entries in one MULTI/EXEC transaction and keeps each
// key's remaining TTL, so a partial rewrite never outlives its siblings.
func (b *RedisBackend) Replace(ctx context.Context, entries map[string]string) error {
	if b.ttl <= 0 {
		return b.Put(ctx, entries)
	}
	if len(entries) == 0 {
		return nil
	}
	_, err := b.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			pipe.SetArgs(ctx, k, v, redis.SetArgs{KeepTTL: true})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes keys.
func (b *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := b.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Durable is true; Redis persistence is an operator concern.
func (b *RedisBackend) Durable() bool { return true }

// Ping returns a point-in-time Redis availability check and latency.
func (b *RedisBackend) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := b.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
