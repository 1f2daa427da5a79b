package service

import (
	"context"
	"testing"

	"github.com/fleetkit/tokenreg/internal/core/domain"
)

func TestList_ParameterFilter(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, RegistryConfig{})

	if _, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{
		Token: "web", Body: aliceBody(map[string]any{domain.KeyHealthCheck: "/healthz"}), User: "alice",
	}); err != nil {
		t.Fatalf("create web: %v", err)
	}
	if _, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{
		Token: "worker", Body: aliceBody(map[string]any{domain.KeyHealthCheck: "/status"}), User: "alice",
	}); err != nil {
		t.Fatalf("create worker: %v", err)
	}

	entries, err := reg.List(ctx, ListInput{
		ParameterFilters: map[string][]string{domain.KeyHealthCheck: {"/healthz"}},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Token != "web" {
		t.Errorf("filtered entries = %+v, want [web]", entries)
	}
}

func TestList_CanManageAsExcludesNonOwnedTokens(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, RegistryConfig{})

	if _, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{Token: "t1", Body: aliceBody(nil), User: "alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	entries, err := reg.List(ctx, ListInput{CanManageAs: "mallory"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected mallory to see no tokens she cannot manage, got %+v", entries)
	}

	entries, err = reg.List(ctx, ListInput{CanManageAs: "alice"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected alice to see her own token, got %+v", entries)
	}
}

func TestList_ShowMetadataIncludesETagAndDeletedFlag(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, RegistryConfig{})

	if _, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{Token: "t1", Body: aliceBody(nil), User: "alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	entries, err := reg.List(ctx, ListInput{ShowMetadata: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v, want 1", entries)
	}
	if entries[0].ETag == "" {
		t.Error("expected ETag populated when ShowMetadata is set")
	}
	if entries[0].Deleted == nil || *entries[0].Deleted {
		t.Error("expected Deleted = false when ShowMetadata is set")
	}
}
