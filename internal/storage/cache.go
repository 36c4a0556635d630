package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultCacheTTL is the time-to-live for cached records (5 minutes)
const DefaultCacheTTL = 5 * time.Minute

// RecordCache is a read-through cache in front of the repositories.
// Callers treat cache errors as misses.
type RecordCache interface {
	// Get decodes the cached value into dst and reports whether it was present
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, key string) error
}

func FileCacheKey(id string) string    { return "file:" + id }
func MessageCacheKey(id string) string { return "message:" + id }

// NopCache is used when no cache is configured
type NopCache struct{}

func (NopCache) Get(ctx context.Context, key string, dst any) (bool, error) { return false, nil }
func (NopCache) Set(ctx context.Context, key string, value any) error       { return nil }
func (NopCache) Invalidate(ctx context.Context, key string) error           { return nil }

// RedisCache stores JSON-encoded records in Redis with tracing
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects using a redis:// URL and verifies the connection
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, ttl), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks that Redis is reachable
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	ctx, span := tracer.Start(ctx, "redis.get",
		trace.WithAttributes(attribute.String("cache_key", key)),
	)
	defer span.End()

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(
			attribute.Bool("cache_hit", false),
			attribute.String("cache_status", "miss"),
		)
		return false, nil
	} else if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	span.SetAttributes(
		attribute.Bool("cache_hit", true),
		attribute.String("cache_status", "hit"),
	)
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	ctx, span := tracer.Start(ctx, "redis.set",
		trace.WithAttributes(attribute.String("cache_key", key)),
	)
	defer span.End()

	data, err := json.Marshal(value)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set cache: %w", err)
	}

	span.SetAttributes(attribute.Int64("ttl_seconds", int64(c.ttl.Seconds())))
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "redis.invalidate",
		trace.WithAttributes(attribute.String("cache_key", key)),
	)
	defer span.End()

	if err := c.client.Del(ctx, key).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}
