package service

import (
	"context"
	"testing"

	"github.com/fleetkit/tokenreg/internal/core/domain"
	"github.com/fleetkit/tokenreg/internal/kv"
)

// testClock is a deterministic, strictly-increasing Clock for tests.
type testClock struct{ t int64 }

func (c *testClock) now() int64 {
	c.t++
	return c.t
}

func newTestRegistry(t *testing.T, cfg RegistryConfig) (*Registry, *RoleAuthorizer, *testClock) {
	t.Helper()
	store := kv.NewMemoryStore()
	locks := NewLockManager()
	authz := NewRoleAuthorizer()
	cluster := NewStaticClusterCalculator("default-cluster", nil)
	clk := &testClock{}
	reg := NewRegistry(store, locks, authz, cluster, nil, nil, clk.now, cfg, nil)
	return reg, authz, clk
}

func aliceBody(overrides map[string]any) map[string]any {
	body := map[string]any{
		domain.KeyCmd:       "run",
		domain.KeyMemoryMB:  float64(512),
		domain.KeyCPUs:      float64(1),
		domain.KeyRunAsUser: "alice",
	}
	for k, v := range overrides {
		body[k] = v
	}
	return body
}

// Scenario A: create as alice, then GET returns the same ETag.
func TestScenarioA_CreateThenGet(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, RegistryConfig{})

	res, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{
		Token: "t1", Body: aliceBody(nil), User: "alice",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.ETag == "" {
		t.Fatal("expected non-empty ETag")
	}

	_, etag, found, err := reg.Get(ctx, "t1")
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if etag != res.ETag {
		t.Errorf("etag = %s, want %s", etag, res.ETag)
	}
}

// Scenario B: identical POST is a no-op with the same ETag.
func TestScenarioB_IdempotentCreateIsNoOp(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, RegistryConfig{})

	res1, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{Token: "t1", Body: aliceBody(nil), User: "alice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	res2, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{Token: "t1", Body: aliceBody(nil), User: "alice"})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if !res2.NoChange {
		t.Error("expected NoChange = true on identical resubmit")
	}
	if res2.ETag != res1.ETag {
		t.Errorf("etag changed on no-op update: %s != %s", res2.ETag, res1.ETag)
	}
}

// Scenario C: optimistic concurrency — update without If-Match succeeds
// and changes the hash; a stale If-Match on the next update fails 412.
func TestScenarioC_OptimisticConcurrency(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, RegistryConfig{})

	res1, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{Token: "t1", Body: aliceBody(nil), User: "alice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res2, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{
		Token: "t1", Body: aliceBody(map[string]any{domain.KeyCPUs: float64(2)}), User: "alice",
	})
	if err != nil {
		t.Fatalf("update without if-match: %v", err)
	}
	if res2.ETag == res1.ETag {
		t.Fatal("expected a new ETag after a real change")
	}

	_, err = reg.CreateOrUpdate(ctx, CreateOrUpdateInput{
		Token: "t1", Body: aliceBody(map[string]any{domain.KeyCPUs: float64(3)}), User: "alice", IfMatch: res1.ETag,
	})
	if !domain.IsRegistryError(err, domain.ErrPreconditionFailed.Code) {
		t.Fatalf("expected precondition-failed, got %v", err)
	}

	// The current hash still works.
	_, err = reg.CreateOrUpdate(ctx, CreateOrUpdateInput{
		Token: "t1", Body: aliceBody(map[string]any{domain.KeyCPUs: float64(4)}), User: "alice", IfMatch: res2.ETag,
	})
	if err != nil {
		t.Fatalf("update with current if-match: %v", err)
	}
}

// Scenario D: quota enforcement, then soft-delete freeing a slot.
func TestScenarioD_Quota(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, RegistryConfig{Quota: 1})

	if _, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{Token: "t1", Body: aliceBody(nil), User: "alice"}); err != nil {
		t.Fatalf("create t1: %v", err)
	}

	_, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{Token: "t2", Body: aliceBody(nil), User: "alice"})
	if !domain.IsRegistryError(err, domain.ErrQuotaExceeded.Code) {
		t.Fatalf("expected quota-exceeded, got %v", err)
	}

	if err := reg.Delete(ctx, DeleteInput{Token: "t1", User: "alice"}); err != nil {
		t.Fatalf("delete t1: %v", err)
	}

	if _, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{Token: "t2", Body: aliceBody(nil), User: "alice"}); err != nil {
		t.Fatalf("create t2 after freeing quota: %v", err)
	}
}

// Scenario E: hard delete requires If-Match on a live token, and an
// administrator's hard delete removes both the record and shard entry.
func TestScenarioE_HardDelete(t *testing.T) {
	ctx := context.Background()
	reg, authz, _ := newTestRegistry(t, RegistryConfig{})
	authz.SetRole("root", RoleAdmin)

	res, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{Token: "t1", Body: aliceBody(nil), User: "alice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = reg.Delete(ctx, DeleteInput{Token: "t1", User: "root", HardDelete: true})
	if !domain.IsRegistryError(err, domain.ErrMissingIfMatch.Code) {
		t.Fatalf("expected missing-if-match, got %v", err)
	}

	if err := reg.Delete(ctx, DeleteInput{Token: "t1", User: "root", HardDelete: true, IfMatch: res.ETag}); err != nil {
		t.Fatalf("hard delete: %v", err)
	}

	_, _, found, err := reg.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get after hard delete: %v", err)
	}
	if found {
		t.Error("expected token record gone after hard delete")
	}

	entries, err := reg.List(ctx, ListInput{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, e := range entries {
		if e.Token == "t1" {
			t.Error("expected no shard entry after hard delete")
		}
	}
}

// Property 4: history bound. After many updates, the previous chain
// never exceeds MaxHistoryDepth.
func TestHistoryBound(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, RegistryConfig{})

	if _, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{Token: "t1", Body: aliceBody(nil), User: "alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var last *CreateOrUpdateResult
	for i := 0; i < domain.MaxHistoryDepth+3; i++ {
		res, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{
			Token: "t1", Body: aliceBody(map[string]any{domain.KeyCPUs: float64(i + 2)}), User: "alice",
		})
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		last = res
	}

	if got := domain.HistoryLen(last.Record); got > domain.MaxHistoryDepth {
		t.Errorf("history length = %d, want <= %d", got, domain.MaxHistoryDepth)
	}
}

// Property 7: ownership transfer moves the shard entry atomically. Only
// an administrator can reassign ownership away from a specific run-as
// identity without holding run-as rights on the new owner, so the
// transfer itself runs in admin mode.
func TestOwnershipTransfer(t *testing.T) {
	ctx := context.Background()
	reg, authz, _ := newTestRegistry(t, RegistryConfig{})
	authz.SetRole("root", RoleAdmin)

	created, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{Token: "t1", Body: aliceBody(nil), User: "alice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = reg.CreateOrUpdate(ctx, CreateOrUpdateInput{
		Token:     "t1",
		Body:      aliceBody(map[string]any{domain.KeyOwner: "bob", domain.KeyRunAsUser: "bob"}),
		User:      "root",
		AdminMode: true,
		IfMatch:   created.ETag,
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	underAlice, err := reg.List(ctx, ListInput{Owners: []string{"alice"}})
	if err != nil {
		t.Fatalf("list under alice: %v", err)
	}
	for _, e := range underAlice {
		if e.Token == "t1" {
			t.Error("t1 should no longer be listed under alice")
		}
	}

	underBob, err := reg.List(ctx, ListInput{Owners: []string{"bob"}})
	if err != nil {
		t.Fatalf("list under bob: %v", err)
	}
	found := false
	for _, e := range underBob {
		if e.Token == "t1" {
			found = true
		}
	}
	if !found {
		t.Error("t1 should be listed under bob after transfer")
	}
}

// Property 8: soft delete is excluded from default listing, included with
// IncludeDeleted, and the record itself is kept (the HTTP GET handler turns
// it into a 404 unless include=deleted is set).
func TestSoftDeleteVisibility(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, RegistryConfig{})

	if _, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{Token: "t1", Body: aliceBody(nil), User: "alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := reg.Delete(ctx, DeleteInput{Token: "t1", User: "alice"}); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	_, _, found, err := reg.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("soft-deleted token record should still exist")
	}

	visible, err := reg.List(ctx, ListInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, e := range visible {
		if e.Token == "t1" {
			t.Error("soft-deleted token should not appear in default listing")
		}
	}

	withDeleted, err := reg.List(ctx, ListInput{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("list include-deleted: %v", err)
	}
	present := false
	for _, e := range withDeleted {
		if e.Token == "t1" {
			present = true
		}
	}
	if !present {
		t.Error("soft-deleted token should appear when IncludeDeleted is set")
	}
}

func TestCreateOrUpdate_RejectsUnknownKey(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, RegistryConfig{})

	_, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{
		Token: "t1", Body: map[string]any{"bogus": true}, User: "alice",
	})
	if !domain.IsRegistryError(err, domain.ErrUnknownKey.Code) {
		t.Fatalf("expected unknown-key error, got %v", err)
	}
}

func TestCreateOrUpdate_RejectsForbiddenMetadataInNormalMode(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, RegistryConfig{})

	_, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{
		Token: "t1",
		Body:  aliceBody(map[string]any{domain.KeyRoot: "sneaky"}),
		User:  "alice",
	})
	if !domain.IsRegistryError(err, domain.ErrForbiddenMetadata.Code) {
		t.Fatalf("expected forbidden-metadata error, got %v", err)
	}
}

func TestCreateOrUpdate_ManageDeniedOnOwnerChangeByNonOwner(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, RegistryConfig{})

	if _, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{Token: "t1", Body: aliceBody(nil), User: "alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := reg.CreateOrUpdate(ctx, CreateOrUpdateInput{
		Token: "t1",
		Body:  aliceBody(map[string]any{domain.KeyOwner: "mallory", domain.KeyRunAsUser: "mallory"}),
		User:  "mallory",
	})
	if !domain.IsRegistryError(err, domain.ErrManageDenied.Code) {
		t.Fatalf("expected manage-denied, got %v", err)
	}
}
