package service

import (
	"context"
	"testing"

	"github.com/fleetkit/tokenreg/internal/kv"
)

func TestKVTokenLister_FiltersAdministrativeKeys(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	locks := NewLockManager()
	authz := NewRoleAuthorizer()
	cluster := NewStaticClusterCalculator("default-cluster", nil)
	reg := NewRegistry(store, locks, authz, cluster, nil, nil, nil, RegistryConfig{}, nil)

	if _, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{Token: "t1", Body: aliceBody(nil), User: "alice"}); err != nil {
		t.Fatalf("create t1: %v", err)
	}
	if _, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{Token: "t2", Body: aliceBody(nil), User: "alice"}); err != nil {
		t.Fatalf("create t2: %v", err)
	}

	lister := NewKVTokenLister(store)
	names, err := lister.ListTokenNames(ctx)
	if err != nil {
		t.Fatalf("ListTokenNames: %v", err)
	}

	got := map[string]bool{}
	for _, n := range names {
		got[n] = true
	}
	if !got["t1"] || !got["t2"] {
		t.Errorf("names = %v, want t1 and t2 present", names)
	}
	for _, n := range names {
		if n == "^TOKEN_OWNERS" || len(n) >= len("^TOKEN_OWNERS_") && n[:len("^TOKEN_OWNERS_")] == "^TOKEN_OWNERS_" {
			t.Errorf("administrative key %q leaked into token names", n)
		}
	}
}

func TestKVTokenLister_EmptyStore(t *testing.T) {
	store := kv.NewMemoryStore()
	lister := NewKVTokenLister(store)
	names, err := lister.ListTokenNames(context.Background())
	if err != nil {
		t.Fatalf("ListTokenNames: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("names = %v, want empty", names)
	}
}
