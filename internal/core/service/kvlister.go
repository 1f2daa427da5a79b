package service

import (
	"context"
	"strings"

	"github.com/fleetkit/tokenreg/internal/core/domain"
)

// KeyLister is satisfied by KV adapters that can enumerate every key they
// hold (internal/kv.MemoryStore, internal/storage/badgerkv.Store). It is
// not part of kv.Store itself: the registry's adapter contract (§4.1) stays
// fetch/store/delete, and full enumeration is only ever needed by the
// re-index path.
type KeyLister interface {
	Keys(ctx context.Context) ([]string, error)
}

// KVTokenLister adapts a KeyLister into the TokenLister a Reindexer needs,
// filtering out the owner-directory and shard administrative keys so only
// actual token record keys are returned (§4.7 "Input: full list of token
// names, supplied by an external lister").
type KVTokenLister struct {
	keys KeyLister
}

// NewKVTokenLister creates a KVTokenLister backed by keys.
func NewKVTokenLister(keys KeyLister) *KVTokenLister {
	return &KVTokenLister{keys: keys}
}

// ListTokenNames implements TokenLister.
func (l *KVTokenLister) ListTokenNames(ctx context.Context) ([]string, error) {
	all, err := l.keys.Keys(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(all))
	for _, key := range all {
		if key == domain.DirectoryKey || strings.HasPrefix(key, domain.ShardKeyPrefix) {
			continue
		}
		names = append(names, key)
	}
	return names, nil
}
