package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetkit/tokenreg/internal/core/domain"
	"github.com/fleetkit/tokenreg/internal/core/hash"
)

// ListInput carries the parameters for list-tokens (§4.9).
type ListInput struct {
	// Owners restricts the scan to these owners. Empty means every owner
	// in the directory.
	Owners []string

	IncludeDeleted bool
	ShowMetadata   bool

	// CanManageAs, if non-empty, keeps only tokens the given user can
	// manage (§4.9 "if can-manage-as? supplied, keep only tokens where
	// manage-token?(can-manage-as, token, {owner}) holds").
	CanManageAs string

	// ParameterFilters restricts results to tokens whose named parameter
	// stringifies to one of the given values.
	ParameterFilters map[string][]string
}

// ListedToken is one entry in a list-tokens result.
type ListedToken struct {
	Token  string
	Owner  string
	Params domain.ServiceParameters

	// Root, Cluster and LastUpdateUser are always populated; the three
	// fields after them are set only when ListInput.ShowMetadata is set
	// (§4.9: "either full metadata ... or a stripped form without
	// deleted, etag, last-update-time").
	Root           string
	Cluster        string
	LastUpdateUser string
	LastUpdateTime string // ISO-8601, only when ShowMetadata
	Deleted        *bool  // nil unless ShowMetadata
	ETag           string // empty unless ShowMetadata
}

// List walks the owner index applying the requested filters (§4.9).
func (r *Registry) List(ctx context.Context, in ListInput) ([]ListedToken, error) {
	directory, err := r.loadDirectory(ctx, false)
	if err != nil {
		return nil, err
	}

	owners := in.Owners
	if len(owners) == 0 {
		owners = make([]string, 0, len(directory))
		for owner := range directory {
			owners = append(owners, owner)
		}
	}

	var out []ListedToken
	for _, owner := range owners {
		shardKey, ok := directory[owner]
		if !ok {
			continue
		}
		shard, err := r.loadShard(ctx, shardKey, false)
		if err != nil {
			return nil, err
		}
		for token, shardEntry := range shard {
			if shardEntry.Deleted && !in.IncludeDeleted {
				continue
			}
			if in.CanManageAs != "" {
				md := domain.TokenMetadata{Owner: owner}
				if !r.authz.CanManageToken(ctx, in.CanManageAs, token, md) {
					continue
				}
			}

			record, found, err := r.fetchRecord(ctx, token, false)
			if err != nil {
				return nil, err
			}
			if !found {
				continue
			}
			if !matchesParameterFilters(record.Params, in.ParameterFilters) {
				continue
			}

			listed := ListedToken{
				Token:          token,
				Owner:          owner,
				Params:         record.Params,
				Root:           record.Metadata.Root,
				Cluster:        record.Metadata.Cluster,
				LastUpdateUser: record.Metadata.LastUpdateUser,
			}
			if in.ShowMetadata {
				listed.LastUpdateTime = time.UnixMilli(record.Metadata.LastUpdateTime).UTC().Format(time.RFC3339)
				deleted := record.Metadata.Deleted
				listed.Deleted = &deleted
				listed.ETag = hash.HashRecord(record)
			}
			out = append(out, listed)
		}
	}
	return out, nil
}

// ListOwners returns the set of owners present in the directory.
func (r *Registry) ListOwners(ctx context.Context) ([]string, error) {
	directory, err := r.loadDirectory(ctx, false)
	if err != nil {
		return nil, err
	}
	owners := make([]string, 0, len(directory))
	for owner := range directory {
		owners = append(owners, owner)
	}
	return owners, nil
}

// OwnersMap returns the raw owner -> shard-key directory, for operator
// inspection (§4.9 "owners-map: the raw directory mapping").
func (r *Registry) OwnersMap(ctx context.Context) (domain.Directory, error) {
	return r.loadDirectory(ctx, false)
}

func matchesParameterFilters(params domain.ServiceParameters, filters map[string][]string) bool {
	for key, values := range filters {
		actual, ok := paramValueString(params, key)
		if !ok {
			return false
		}
		if !containsString(values, actual) {
			return false
		}
	}
	return true
}

func paramValueString(params domain.ServiceParameters, key string) (string, bool) {
	switch key {
	case domain.KeyCmd:
		return params.Cmd, true
	case domain.KeyCPUs:
		return fmt.Sprintf("%v", params.CPUs), true
	case domain.KeyMemoryMB:
		return fmt.Sprintf("%d", params.MemoryMB), true
	case domain.KeyHealthCheck:
		return params.HealthCheck, true
	case domain.KeyAuthentication:
		return params.Authentication, true
	case domain.KeyPermittedUser:
		return params.PermittedUser, true
	case domain.KeyInterstitialSecs:
		return fmt.Sprintf("%d", params.InterstitialSecs), true
	case domain.KeyRunAsUser:
		return params.RunAsUser, true
	default:
		return "", false
	}
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

