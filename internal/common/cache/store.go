// Package cache implements the conversion cache: bounded key-value stores and
// the cache-aside orchestration in front of them.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Exmortem/roman-numerals/internal/common/config"
	"github.com/Exmortem/roman-numerals/internal/common/database"
)

// Store is a size- and time-bounded key-value store safe for concurrent use.
type Store interface {
	// Get returns the value under key. A missing or expired key is reported
	// with found == false and a nil error.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set stores value under key, applying the store's TTL and capacity.
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	// Backend names the store in metrics and health output.
	Backend() string
}

// NewStore builds the store selected by cfg.Driver. redis may be nil for the
// memory driver.
func NewStore(cfg config.CacheConfig, redis *database.RedisClient) (Store, error) {
	ttl := cfg.TTLDuration()
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	if cfg.MaxEntries <= 0 {
		return nil, fmt.Errorf("cache max entries must be positive, got %d", cfg.MaxEntries)
	}

	switch cfg.Driver {
	case config.CacheDriverMemory, "":
		return NewMemoryStore(cfg.MaxEntries, ttl), nil
	case config.CacheDriverRedis:
		if redis == nil || redis.Client == nil {
			return nil, fmt.Errorf("redis cache driver requires a redis client")
		}
		return NewRedisStore(redis.Client, RedisOptions{
			TTL:        ttl,
			MaxEntries: cfg.MaxEntries,
			IndexKey:   cfg.IndexKey,
		}), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

const (
	DefaultTTL        = 10 * time.Second
	DefaultMaxEntries = 100
)
