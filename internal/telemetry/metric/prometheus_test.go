package metric

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.registry == nil {
		t.Error("registry field is nil")
	}
	if r.TokensCreated == nil {
		t.Error("TokensCreated is nil")
	}
	if r.RequestsTotal == nil {
		t.Error("RequestsTotal is nil")
	}
	if r.RequestDuration == nil {
		t.Error("RequestDuration is nil")
	}
}

func TestGlobal(t *testing.T) {
	r1 := Global()
	r2 := Global()
	if r1 != r2 {
		t.Error("Global() should return the same instance")
	}
}

func TestHandler_ServesExposition(t *testing.T) {
	r := NewRegistry()
	r.TokensCreated.Inc()
	r.TokensCreated.Inc()
	r.QuotaRejections.Inc()
	r.RecordRequest("POST", "/token", "200")
	r.ObserveRequestDuration("POST", "/token", 0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body, _ := io.ReadAll(rec.Body)
	bodyStr := string(body)

	if !strings.Contains(bodyStr, "go_goroutines") {
		t.Error("expected go_goroutines metric from the Go collector")
	}
	if !strings.Contains(bodyStr, "tokenreg_tokens_created_total 2") {
		t.Error("expected tokenreg_tokens_created_total 2")
	}
	if !strings.Contains(bodyStr, "tokenreg_tokens_quota_rejections_total 1") {
		t.Error("expected tokenreg_tokens_quota_rejections_total 1")
	}
	if !strings.Contains(bodyStr, `tokenreg_http_requests_total{method="POST",path="/token",status="200"} 1`) {
		t.Error("expected tokenreg_http_requests_total for POST /token 200")
	}
	if !strings.Contains(bodyStr, "tokenreg_http_request_duration_seconds_count") {
		t.Error("expected tokenreg_http_request_duration_seconds_count")
	}
}

func TestRegistry_LockAndReindexMetrics(t *testing.T) {
	r := NewRegistry()

	r.LockHolders.Inc()
	r.LockWaitTime.Observe(0.002)
	r.ReindexRuns.Inc()
	r.TokensDeleted.Inc()
	r.TokensHardDeleted.Inc()
	r.PreconditionFailures.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Body)
	bodyStr := string(body)

	for _, want := range []string{
		"tokenreg_locks_holders 1",
		"tokenreg_locks_wait_seconds_count 1",
		"tokenreg_reindex_runs_total 1",
		"tokenreg_tokens_deleted_total 1",
		"tokenreg_tokens_hard_deleted_total 1",
		"tokenreg_tokens_precondition_failures_total 1",
	} {
		if !strings.Contains(bodyStr, want) {
			t.Errorf("expected exposition to contain %q", want)
		}
	}
}

type stubOwnerLister struct{ owners []string }

func (s stubOwnerLister) ListOwners(context.Context) ([]string, error) { return s.owners, nil }

func TestRegistry_RegisterCollector(t *testing.T) {
	r := NewRegistry()
	r.RegisterCollector(NewCollector(stubOwnerLister{owners: []string{"alice", "bob"}}))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "tokenreg_owners_total 2") {
		t.Error("expected tokenreg_owners_total 2")
	}
}
