// Package domain defines the core domain models for the token registry.
//
// A token is a named, versioned, owner-scoped handle for a service
// description: a bundle of service parameters plus metadata (owner, root
// cluster, timestamps, update history, deletion tombstone). This package
// contains:
//
//   - ServiceParameters, TokenMetadata, TokenRecord: the persisted
//     record shapes.
//   - RegistryError: the structured domain error type shared by the
//     service and HTTP layers.
//
// Domain models are pure value objects without IO dependencies.
package domain
