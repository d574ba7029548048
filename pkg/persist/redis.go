package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Compile-time interface check.
var _ Storage = (*RedisStorage)(nil)

// RedisStorage is a Storage backed by Redis string keys. Each item lives at
// <prefix><key>.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// RedisConfig configures NewRedisClient.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// NewRedisClient creates a client from cfg. No connection is made until the
// first command.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisStorage creates a Redis-backed storage. The storage owns client
// and closes it in Close.
func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix}
}

// GetItem returns the value stored under key.
func (r *RedisStorage) GetItem(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("persist: redis get: %w", err)
	}
	return v, nil
}

// SetItem stores value under key with no expiry.
func (r *RedisStorage) SetItem(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.redisKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("persist: redis set: %w", err)
	}
	return nil
}

// RemoveItem deletes key.
func (r *RedisStorage) RemoveItem(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("persist: redis del: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisStorage) Close() error {
	return r.client.Close()
}

func (r *RedisStorage) redisKey(key string) string {
	return r.prefix + key
}
