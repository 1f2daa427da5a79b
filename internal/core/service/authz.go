package service

import (
	"context"
	"sync"

	"github.com/fleetkit/tokenreg/internal/core/domain"
)

// Authorizer is the authorization-gate collaborator consumed by Registry
// (§6: "authz: {manage-token?(u, t, md), administer-token?(u, t, md),
// run-as?(u, target)}").
type Authorizer interface {
	// CanManageToken reports whether user may mutate or soft-delete token
	// t, whose current metadata is md.
	CanManageToken(ctx context.Context, user, token string, md domain.TokenMetadata) bool

	// CanAdministerToken reports whether user may perform an
	// administrator-mode mutation or hard-delete of token t.
	CanAdministerToken(ctx context.Context, user, token string, md domain.TokenMetadata) bool

	// CanRunAs reports whether user may launch a service running as the
	// specific identity target.
	CanRunAs(ctx context.Context, user, target string) bool
}

// Role is a coarse authorization level, generalized from the teacher's
// API-key Role/Permission model (apikey.go) to per-owner token
// permissions: the registry has no API-key concept of its own, so
// RoleAuthorizer keys roles by the already-authenticated user identity
// instead.
type Role string

const (
	// RoleUser may manage tokens it owns, and run services as itself.
	RoleUser Role = "user"

	// RoleAdmin may manage, administer, and run-as any token or identity.
	RoleAdmin Role = "admin"
)

// RoleAuthorizer is a reference Authorizer backed by an in-memory
// user->Role map, grounded on the lazily-populated guarded-map pattern
// used throughout the teacher's service package (e.g.
// RateLimiterRegistry).
type RoleAuthorizer struct {
	mu    sync.RWMutex
	roles map[string]Role
}

// NewRoleAuthorizer creates a RoleAuthorizer with no roles assigned; an
// unknown user defaults to RoleUser.
func NewRoleAuthorizer() *RoleAuthorizer {
	return &RoleAuthorizer{roles: make(map[string]Role)}
}

// SetRole assigns user's role.
func (a *RoleAuthorizer) SetRole(user string, role Role) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roles[user] = role
}

func (a *RoleAuthorizer) roleOf(user string) Role {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if role, ok := a.roles[user]; ok {
		return role
	}
	return RoleUser
}

// CanManageToken grants admins unconditionally, and grants the token's
// current owner (§3: "Owner ... determines quota scope").
func (a *RoleAuthorizer) CanManageToken(_ context.Context, user, _ string, md domain.TokenMetadata) bool {
	if a.roleOf(user) == RoleAdmin {
		return true
	}
	return md.Owner != "" && md.Owner == user
}

// CanAdministerToken grants only admins.
func (a *RoleAuthorizer) CanAdministerToken(_ context.Context, user, _ string, _ domain.TokenMetadata) bool {
	return a.roleOf(user) == RoleAdmin
}

// CanRunAs grants admins unconditionally, and grants a user running as
// itself.
func (a *RoleAuthorizer) CanRunAs(_ context.Context, user, target string) bool {
	if a.roleOf(user) == RoleAdmin {
		return true
	}
	return user == target
}
