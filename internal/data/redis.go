package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConnector implements Connector on a Redis-compatible hosted store
type RedisConnector struct {
	client *redis.Client
}

// NewRedisConnector parses a redis:// or rediss:// URL and connects lazily
func NewRedisConnector(url string) (*RedisConnector, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &RedisConnector{client: redis.NewClient(opts)}, nil
}

// NewRedisConnectorFromClient wraps an existing client
func NewRedisConnectorFromClient(client *redis.Client) *RedisConnector {
	return &RedisConnector{client: client}
}

func (r *RedisConnector) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (r *RedisConnector) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisConnector) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// MGet issues one GET per key inside a pipeline
func (r *RedisConnector) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}

	// Exec reports redis.Nil when any key is missing; per-command results are checked below
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis pipeline: %w", err)
	}

	values := make([][]byte, len(keys))
	for i, cmd := range cmds {
		value, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis pipeline get %s: %w", keys[i], err)
		}
		values[i] = value
	}
	return values, nil
}

func (r *RedisConnector) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisConnector) Close() error {
	return r.client.Close()
}
