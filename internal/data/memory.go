package data

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// MemoryConnector is an in-process Connector for local development.
// Entries may be evicted under memory pressure, so it is not a durable profile store.
type MemoryConnector struct {
	cache *ristretto.Cache[string, []byte]
}

// NewMemoryConnector creates a store bounded to maxBytes of values
func NewMemoryConnector(maxBytes int64) (*MemoryConnector, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e5,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create memory store: %w", err)
	}
	return &MemoryConnector{cache: cache}, nil
}

func (m *MemoryConnector) Get(ctx context.Context, key string) ([]byte, error) {
	value, ok := m.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

func (m *MemoryConnector) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !m.cache.SetWithTTL(key, value, int64(len(value)), ttl) {
		return fmt.Errorf("memory store rejected key %s", key)
	}
	// Make the write visible to the next Get
	m.cache.Wait()
	return nil
}

func (m *MemoryConnector) Delete(ctx context.Context, key string) error {
	m.cache.Del(key)
	return nil
}

func (m *MemoryConnector) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	values := make([][]byte, len(keys))
	for i, key := range keys {
		if value, ok := m.cache.Get(key); ok {
			values[i] = value
		}
	}
	return values, nil
}

func (m *MemoryConnector) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryConnector) Close() error {
	m.cache.Close()
	return nil
}
