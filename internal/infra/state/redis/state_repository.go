// Package redisstate implements repository.StateRepository on Redis.
package redisstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/slumio/Bro-code/internal/repository"
)

// RedisStateRepository holds the transient per-room state: the hot drawing
// snapshot cache and the rate-limit counters.
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateRepository creates a RedisStateRepository.
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "bc:"
	}
	return &RedisStateRepository{client: client, keyPrefix: keyPrefix}
}

func (r *RedisStateRepository) drawingKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:drawing", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) rateLimitKey(key string) string {
	return fmt.Sprintf("%sratelimit:%s", r.keyPrefix, key)
}

func (r *RedisStateRepository) GetDrawingCache(ctx context.Context, roomID string) (string, error) {
	val, err := r.client.Get(ctx, r.drawingKey(roomID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("redis: get drawing cache for room '%s': %w", roomID, err)
	}
	return val, nil
}

func (r *RedisStateRepository) SetDrawingCache(ctx context.Context, roomID string, snapshot string, ttl time.Duration) error {
	err := r.client.Set(ctx, r.drawingKey(roomID), snapshot, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis: set drawing cache for room '%s': %w", roomID, err)
	}
	return nil
}

func (r *RedisStateRepository) ClearRoomState(ctx context.Context, roomID string) error {
	err := r.client.Del(ctx, r.drawingKey(roomID)).Err()
	if err != nil {
		return fmt.Errorf("redis: clear state for room '%s': %w", roomID, err)
	}
	return nil
}

// CheckRateLimit increments the window counter for key and reports whether
// the limit is exceeded. INCR and EXPIRE run in one pipeline so the window is
// refreshed together with the count.
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rk := r.rateLimitKey(key)
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, rk)
	pipe.Expire(ctx, rk, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit pipeline for key '%s': %w", key, err)
	}
	count, err := incr.Result()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit count for key '%s': %w", key, err)
	}
	return count > int64(limit), nil
}
