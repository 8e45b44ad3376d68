package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	BackendRedis = "redis"

	DefaultIndexKey = "romannumeral:cache:index"
)

// RedisOptions bounds a RedisStore.
type RedisOptions struct {
	TTL        time.Duration
	MaxEntries int
	// IndexKey names the sorted set tracking stored keys by write time.
	IndexKey string
}

// RedisStore keeps entries in Redis. Expiry is Redis' own PX expiry. The
// capacity bound is kept with a sorted set of keys scored by write time:
// once it grows past MaxEntries the oldest writes are evicted.
type RedisStore struct {
	client     *redis.Client
	ttl        time.Duration
	maxEntries int
	indexKey   string
	now        func() time.Time
}

func NewRedisStore(client *redis.Client, opts RedisOptions) *RedisStore {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.IndexKey == "" {
		opts.IndexKey = DefaultIndexKey
	}
	return &RedisStore{
		client:     client,
		ttl:        ttlOrDefault(opts.TTL),
		maxEntries: opts.MaxEntries,
		indexKey:   opts.IndexKey,
		now:        time.Now,
	}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	now := r.now()
	if err := r.client.ZAdd(ctx, r.indexKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: key,
	}).Err(); err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}

	return r.enforceCapacity(ctx, now)
}

// enforceCapacity drops index members whose keys have expired, then evicts
// the oldest writes until at most maxEntries remain.
func (r *RedisStore) enforceCapacity(ctx context.Context, now time.Time) error {
	expiredBefore := now.Add(-r.ttl).UnixMilli()
	if err := r.client.ZRemRangeByScore(ctx, r.indexKey, "-inf", fmt.Sprintf("(%d", expiredBefore)).Err(); err != nil {
		return fmt.Errorf("redis zremrangebyscore: %w", err)
	}

	size, err := r.client.ZCard(ctx, r.indexKey).Result()
	if err != nil {
		return fmt.Errorf("redis zcard: %w", err)
	}
	overflow := size - int64(r.maxEntries)
	if overflow <= 0 {
		return nil
	}

	evicted, err := r.client.ZPopMin(ctx, r.indexKey, overflow).Result()
	if err != nil {
		return fmt.Errorf("redis zpopmin: %w", err)
	}
	keys := make([]string, 0, len(evicted))
	for _, z := range evicted {
		if k, ok := z.Member.(string); ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if err := r.client.ZRem(ctx, r.indexKey, key).Err(); err != nil {
		return fmt.Errorf("redis zrem: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *RedisStore) Backend() string { return BackendRedis }
