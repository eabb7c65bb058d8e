// Package redis caches the D365 mapping lookups. The mapping tables change
// rarely but are queried once or more per imported line, so a short TTL cache
// removes almost all lookup round-trips within a batch.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nordicfin/relion-bridge/pkg/logger"
)

const (
	// DefaultTTL is the default TTL for cached mapping rows
	DefaultTTL = 10 * time.Minute

	// NegativeTTL bounds how long a not-found result is remembered;
	// operators adding a missing mapping should not wait long for it to
	// take effect.
	NegativeTTL = 1 * time.Minute

	// KeyPrefix is the prefix for lookup cache keys
	KeyPrefix = "lookup:"

	// absentSentinel marks a cached not-found result
	absentSentinel = "__absent__"
)

// Cache is a Redis-backed JSON cache with negative caching for lookup misses
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewCache creates a new lookup cache
func NewCache(client *redis.Client, log *logger.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    DefaultTTL,
		logger: log.WithField("component", "cache"),
	}
}

// NewCacheWithTTL creates a new lookup cache with custom TTL
func NewCacheWithTTL(client *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: log.WithField("component", "cache"),
	}
}

// Get retrieves a cached value into dest. The second return reports whether
// the key held a cached not-found marker; the first whether anything (value
// or marker) was cached at all.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (hit bool, absent bool, err error) {
	val, err := c.client.Get(ctx, KeyPrefix+key).Result()
	if err == redis.Nil {
		c.logger.Debug("cache miss", "key", key)
		return false, false, nil
	}
	if err != nil {
		c.logger.Error("cache error", "operation", "get", "key", key, "error", err)
		return false, false, fmt.Errorf("failed to get cached value: %w", err)
	}

	if val == absentSentinel {
		c.logger.Debug("cache hit (absent)", "key", key)
		return true, true, nil
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	c.logger.Debug("cache hit", "key", key)
	return true, false, nil
}

// Set stores a value in the cache with the default TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := c.client.Set(ctx, KeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Error("cache error", "operation", "set", "key", key, "error", err)
		return fmt.Errorf("failed to set cached value: %w", err)
	}

	return nil
}

// SetAbsent remembers a not-found result for NegativeTTL
func (c *Cache) SetAbsent(ctx context.Context, key string) error {
	if err := c.client.Set(ctx, KeyPrefix+key, absentSentinel, NegativeTTL).Err(); err != nil {
		c.logger.Error("cache error", "operation", "set_absent", "key", key, "error", err)
		return fmt.Errorf("failed to set absent marker: %w", err)
	}
	return nil
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, KeyPrefix+key).Err()
}

// Clear removes all cached lookup values
func (c *Cache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, KeyPrefix+"*", 0).Iterator()

	pipe := c.client.Pipeline()
	count := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		count++
		if count >= 100 {
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			pipe = c.client.Pipeline()
			count = 0
		}
	}

	if count > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}

	return iter.Err()
}
