package kv

import (
	"context"

	"github.com/fleetkit/tokenreg/pkg/cmap"
)

// MemoryStore is an in-memory Store, used in tests and single-node
// deployments. It is itself the source of truth (there is no separate
// caching layer in front of it), so refresh is a no-op, grounded on the
// sharded-map indexing pattern of internal/storage/memory.Store.
type MemoryStore struct {
	data *cmap.Map[string, map[string]any]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: cmap.New[string, map[string]any]()}
}

// Fetch implements Store.
func (m *MemoryStore) Fetch(_ context.Context, key string, _ bool) (map[string]any, bool, error) {
	value, ok := m.data.Get(key)
	if !ok {
		return nil, false, nil
	}
	return cloneValue(value), true, nil
}

// Store implements Store.
func (m *MemoryStore) Store(_ context.Context, key string, value map[string]any) error {
	m.data.Set(key, cloneValue(value))
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.data.Delete(key)
	return nil
}

// Keys returns every key currently stored. Not part of the Store interface;
// it satisfies service.KeyLister, the interface service.KVTokenLister takes
// for full enumeration.
func (m *MemoryStore) Keys(_ context.Context) ([]string, error) {
	return m.data.Keys(), nil
}

// cloneValue makes a shallow copy of value so callers holding a fetched
// map cannot mutate the store's copy out from under it.
func cloneValue(value map[string]any) map[string]any {
	if value == nil {
		return nil
	}
	clone := make(map[string]any, len(value))
	for k, v := range value {
		clone[k] = v
	}
	return clone
}
