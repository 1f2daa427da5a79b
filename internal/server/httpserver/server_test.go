package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fleetkit/tokenreg/internal/core/service"
	"github.com/fleetkit/tokenreg/internal/kv"
)

func testRegistry() *service.Registry {
	store := kv.NewMemoryStore()
	locks := service.NewLockManager()
	authz := service.NewRoleAuthorizer()
	cluster := service.NewStaticClusterCalculator("default", nil)
	return service.NewRegistry(store, locks, authz, cluster, nil, nil, nil, service.RegistryConfig{GlobalRoot: "root"}, nil)
}

func TestNew(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s := New(":8080", handler)
	if s == nil {
		t.Fatal("New returned nil")
	}
	if s.httpServer == nil {
		t.Error("httpServer is nil")
	}
	if s.handler == nil {
		t.Error("handler is nil")
	}
}

func TestServer_Shutdown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s := New(":0", handler)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.ListenAndServe()
	}()

	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown error: %v", err)
	}

	select {
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			t.Errorf("ListenAndServe returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for ListenAndServe to return")
	}
}

func TestDefaultRouterConfig(t *testing.T) {
	cfg := DefaultRouterConfig()
	if cfg == nil {
		t.Fatal("DefaultRouterConfig returned nil")
	}
	if cfg.GlobalRateLimit <= 0 {
		t.Error("GlobalRateLimit should be positive")
	}
	if !cfg.EnableAudit {
		t.Error("EnableAudit should default to true")
	}
}

func TestNewRouter_HealthAndTokenRoutes(t *testing.T) {
	cfg := DefaultRouterConfig()
	cfg.Registry = testRegistry()

	router := NewRouter(cfg)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health: expected status 200, got %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/token?token=missing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /token (missing): expected status 404, got %d", rec.Code)
	}
}

func TestNewRouter_ReindexGatedByNetworkACL(t *testing.T) {
	cfg := DefaultRouterConfig()
	cfg.Registry = testRegistry()
	cfg.ReindexAllowList = []string{"10.0.0.0/8"}

	router := NewRouter(cfg)

	req := httptest.NewRequest("POST", "/tokens/reindex", nil)
	req.RemoteAddr = "192.168.1.5:1234"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403 for an out-of-allowlist reindex trigger, got %d", rec.Code)
	}
}
