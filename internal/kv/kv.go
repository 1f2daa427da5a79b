// Package kv defines the key-value adapter interface the registry is built
// against (§4.1 "Key-Value adapter") and a couple of reference
// implementations.
//
// The adapter is deliberately opaque: keys are strings, values are
// structured maps, and the adapter owns their encoding. refresh=true asks
// the adapter to bypass any local read-through cache and return
// authoritative state — this is what the peer-refresh protocol (§4.8)
// relies on to invalidate stale reads after a sibling's write.
package kv

import "context"

// Store is the KV adapter interface (§4.1, §6 "kv: {fetch(k, refresh?),
// store(k, v), delete(k)}").
type Store interface {
	// Fetch returns the value stored at key, or ok=false if absent.
	// refresh=true bypasses any local caching layer.
	Fetch(ctx context.Context, key string, refresh bool) (value map[string]any, ok bool, err error)

	// Store writes value at key, overwriting any existing value.
	Store(ctx context.Context, key string, value map[string]any) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
