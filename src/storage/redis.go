package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"onboarding_flow/src/model"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is used when the config leaves the draft TTL unset
	DefaultTTL    = 168 * time.Hour
	defaultPrefix = "draft:"
)

// RedisStorage implements Storage using Redis
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(ctx context.Context, config model.StorageConfig) (*RedisStorage, error) {
	if config.RedisURL == "" {
		return nil, fmt.Errorf("redis storage requires a redis URL")
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStorageFromClient(client, config.KeyPrefix, config.TTL), nil
}

// NewRedisStorageFromClient wraps an existing client. A zero ttl falls back to DefaultTTL.
func NewRedisStorageFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStorage {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStorage{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// key generates a Redis key for the given draft key
func (r *RedisStorage) key(key string) string {
	return r.prefix + key
}

// Get retrieves the stored value and refreshes its TTL
func (r *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.GetEx(ctx, r.key(key), r.ttl).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get draft data: %w", err)
	}
	return value, nil
}

// Set stores value with the configured TTL
func (r *RedisStorage) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set draft data: %w", err)
	}
	return nil
}

// Remove deletes the key from Redis
func (r *RedisStorage) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// TTL gets remaining TTL for a key
func (r *RedisStorage) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, r.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get TTL: %w", err)
	}
	return ttl, nil
}

// Ping tests Redis connection
func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisStorage) Close() error {
	return r.client.Close()
}
