package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const BackendMemory = "memory"

// MemoryStore is a process-local LRU whose entries also expire after a TTL.
type MemoryStore struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		lru: expirable.NewLRU[string, []byte](maxEntries, nil, ttlOrDefault(ttl)),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := m.lru.Get(key)
	return value, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, value)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Backend() string { return BackendMemory }

// Len reports the number of live entries.
func (m *MemoryStore) Len() int {
	return m.lru.Len()
}
