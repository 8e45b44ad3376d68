package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Exmortem/roman-numerals/internal/common/config"
	"github.com/Exmortem/roman-numerals/internal/common/database"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, time.Minute)

	_, found, err := store.Get(ctx, "query:1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "query:1", []byte(`{"input":"1","output":"I"}`)))

	value, found, err := store.Get(ctx, "query:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"input":"1","output":"I"}`, string(value))

	require.NoError(t, store.Delete(ctx, "query:1"))
	_, found, _ = store.Get(ctx, "query:1")
	assert.False(t, found)

	assert.NoError(t, store.Ping(ctx))
	assert.Equal(t, BackendMemory, store.Backend())
}

func TestMemoryStore_CapacityEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3, time.Minute)

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("query:%d", i), []byte("x")))
	}
	// Touch query:1 so query:2 becomes the eviction candidate.
	_, found, _ := store.Get(ctx, "query:1")
	require.True(t, found)

	require.NoError(t, store.Set(ctx, "query:4", []byte("x")))

	assert.Equal(t, 3, store.Len())
	_, found, _ = store.Get(ctx, "query:2")
	assert.False(t, found)
	_, found, _ = store.Get(ctx, "query:1")
	assert.True(t, found)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, 50*time.Millisecond)

	require.NoError(t, store.Set(ctx, "range:1:3", []byte("x")))

	assert.Eventually(t, func() bool {
		_, found, _ := store.Get(ctx, "range:1:3")
		return !found
	}, time.Second, 10*time.Millisecond)
}

func TestNewStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := NewStore(config.CacheConfig{Driver: config.CacheDriverMemory, TTL: 1000, MaxEntries: 5}, nil)
		require.NoError(t, err)
		assert.Equal(t, BackendMemory, store.Backend())
	})

	t.Run("redis without client", func(t *testing.T) {
		_, err := NewStore(config.CacheConfig{Driver: config.CacheDriverRedis, TTL: 1000, MaxEntries: 5}, nil)
		assert.Error(t, err)
	})

	t.Run("redis", func(t *testing.T) {
		client, _ := newMiniredisClient(t)
		store, err := NewStore(
			config.CacheConfig{Driver: config.CacheDriverRedis, TTL: 1000, MaxEntries: 5},
			&database.RedisClient{Client: client},
		)
		require.NoError(t, err)
		assert.Equal(t, BackendRedis, store.Backend())
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := NewStore(config.CacheConfig{Driver: "memcached", TTL: 1000, MaxEntries: 5}, nil)
		assert.Error(t, err)
	})

	t.Run("invalid bounds", func(t *testing.T) {
		_, err := NewStore(config.CacheConfig{Driver: config.CacheDriverMemory, TTL: 0, MaxEntries: 5}, nil)
		assert.Error(t, err)
		_, err = NewStore(config.CacheConfig{Driver: config.CacheDriverMemory, TTL: 10, MaxEntries: 0}, nil)
		assert.Error(t, err)
	})
}
