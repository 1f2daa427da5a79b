package service

import (
	"context"

	"github.com/fleetkit/tokenreg/internal/core/domain"
	"github.com/fleetkit/tokenreg/internal/core/hash"
	"github.com/fleetkit/tokenreg/pkg/nodeid"
)

// TokenLister supplies the full set of token names to re-index, sourced
// externally (§4.7 "Input: full list of token names, supplied by an
// external lister").
type TokenLister interface {
	ListTokenNames(ctx context.Context) ([]string, error)
}

// Reindexer rebuilds the owner directory and per-owner shards from
// scratch without ever exposing a reader to an empty shard for an owner
// that has live tokens (§4.7).
type Reindexer struct {
	registry *Registry
	lister   TokenLister
}

// NewReindexer creates a Reindexer bound to registry's KV/lock/peer
// collaborators.
func NewReindexer(registry *Registry, lister TokenLister) *Reindexer {
	return &Reindexer{registry: registry, lister: lister}
}

// Run executes the re-index algorithm (§4.7 steps 1-7) under the shared
// token lock, then broadcasts {index: true} to peers.
func (rx *Reindexer) Run(ctx context.Context) error {
	names, err := rx.lister.ListTokenNames(ctx)
	if err != nil {
		return err
	}

	err = rx.registry.locks.WithLock(TokenLockName, func() error {
		r := rx.registry

		oldDirectory, err := r.loadDirectory(ctx, true)
		if err != nil {
			return err
		}

		byOwner := make(map[string][]string)
		for _, name := range names {
			record, found, err := r.fetchRecord(ctx, name, true)
			if err != nil {
				return err
			}
			if !found || record.Metadata.Owner == "" {
				continue
			}
			byOwner[record.Metadata.Owner] = append(byOwner[record.Metadata.Owner], name)
		}

		newDirectory := make(domain.Directory, len(byOwner))
		newShards := make(map[string]domain.Shard, len(byOwner))
		for owner, tokens := range byOwner {
			shardKey := nodeid.NewShardKey(domain.ShardKeyPrefix)
			shard := make(domain.Shard, len(tokens))
			for _, name := range tokens {
				record, found, err := r.fetchRecord(ctx, name, true)
				if err != nil {
					return err
				}
				if !found {
					continue
				}
				shard[name] = domain.MakeIndexEntry(hash.HashRecord(record), record.Metadata.Deleted, record.Metadata.LastUpdateTime)
			}
			newDirectory[owner] = shardKey
			newShards[shardKey] = shard
		}

		// Write every new shard before the directory is repointed, so a
		// reader that picks up the new directory never finds a shard-key
		// with nothing behind it.
		for shardKey, shard := range newShards {
			if err := r.storeShard(ctx, shardKey, shard); err != nil {
				return err
			}
		}
		if err := r.storeDirectory(ctx, newDirectory); err != nil {
			return err
		}

		newKeys := make(map[string]bool, len(newShards))
		for _, key := range newDirectory {
			newKeys[key] = true
		}
		for _, oldKey := range oldDirectory {
			if !newKeys[oldKey] {
				if err := r.kv.Delete(ctx, oldKey); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	rx.registry.broadcastRefresh(ctx, RefreshMessage{Index: true})
	return nil
}
