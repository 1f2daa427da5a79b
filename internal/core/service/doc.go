// Package service implements the token registry's core business logic.
//
// This package contains:
//
//   - Registry: the create/update/delete mutation pipeline, quota
//     enforcement, and optimistic-concurrency checks.
//   - Reindexer: rebuild of the owner directory and shards without a
//     visibility gap.
//   - LockManager: named critical sections serializing index-affecting
//     mutations.
//   - Authorizer / RoleAuthorizer: manage/administer/run-as decisions.
//   - ClusterCalculator: request-to-cluster resolution.
//   - PeerBroadcaster: best-effort cache-invalidation fan-out to sibling
//     replicas.
//
// Services hold no HTTP- or storage-engine-specific knowledge; they are
// built against the kv.Store and domain package interfaces so the same
// logic runs unchanged whether the KV layer is Badger or an in-memory
// map.
package service
