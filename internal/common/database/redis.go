// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Exmortem/roman-numerals/internal/common/config"
)

const (
	defaultDialTimeout = 5 * time.Second
	defaultIOTimeout   = 3 * time.Second
	defaultPoolSize    = 10
)

// RedisClient owns the connection pool behind the shared conversion cache.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis builds a pooled client. Connections are opened lazily, so callers
// verify reachability with Ping.
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	return &RedisClient{Client: redis.NewClient(redisOptions(cfg))}, nil
}

func redisOptions(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultIOTimeout,
		WriteTimeout: defaultIOTimeout,
		PoolSize:     defaultPoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = config.GetDuration(cfg.DialTimeout)
	}
	if cfg.IOTimeout > 0 {
		opts.ReadTimeout = config.GetDuration(cfg.IOTimeout)
		opts.WriteTimeout = opts.ReadTimeout
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	return opts
}

// Ping round-trips a PING to the server.
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetClient exposes the pool to the cache store.
func (c *RedisClient) GetClient() *redis.Client {
	return c.Client
}
