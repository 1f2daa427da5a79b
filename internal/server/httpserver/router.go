// Package httpserver provides the HTTP server for the token registry.
package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/fleetkit/tokenreg/internal/core/service"
	"github.com/fleetkit/tokenreg/internal/server/httpserver/handler"
	"github.com/fleetkit/tokenreg/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Registry and Reindexer back the token-registry handlers. Reindexer
	// may be nil, in which case POST /tokens/reindex returns 405.
	Registry  *service.Registry
	Reindexer *service.Reindexer

	// HostResolver maps a request's headers to a token name when the
	// `token` query parameter is absent.
	HostResolver handler.HostResolver

	// Metrics backs GET /metrics. May be nil to omit the endpoint.
	Metrics *metric.Registry

	Logger *slog.Logger

	// AuthTrustedUserHeader is the header an upstream identity proxy sets
	// with the caller's username (defaults to "X-Authenticated-User").
	AuthTrustedUserHeader string

	// ReindexAllowList and RefreshAllowList are IP/CIDR allowlists gating
	// the operator-only reindex trigger and the peer-only refresh
	// endpoint (SPEC_FULL §12 "Admin network ACL"). Empty means
	// unrestricted.
	ReindexAllowList []string
	RefreshAllowList []string

	// CORSAllowedOrigins is the list of allowed CORS origins. Empty leaves
	// the CORS middleware out of the chain.
	CORSAllowedOrigins []string

	// GlobalRateLimit is the per-IP rate limit, requests/second. Zero disables it.
	GlobalRateLimit int

	// EnableAudit enables audit logging for every request.
	EnableAudit bool
}

// NewRouter creates and configures the HTTP router with all routes and
// middleware, wiring handler.Handler behind the ambient middleware stack
// (request-id, panic recovery, CORS, auth relay, rate limiting, audit
// logging, and admin network ACLs on the operator-only routes).
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := handler.New(cfg.Registry, cfg.Reindexer, cfg.HostResolver, logger)

	common := []Middleware{
		RequestID(),
		Recover(logger),
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		common = append(common, CORS(cfg.CORSAllowedOrigins))
	}
	common = append(common, Auth(AuthConfig{TrustedUserHeader: cfg.AuthTrustedUserHeader}))
	if cfg.GlobalRateLimit > 0 {
		common = append(common, RateLimit(cfg.GlobalRateLimit))
	}
	if cfg.EnableAudit {
		common = append(common, Audit(logger))
	}

	mux := http.NewServeMux()

	// Health endpoints skip auth/rate-limiting entirely.
	healthChain := Chain(h, RequestID(), Recover(logger))
	mux.Handle("GET /health", healthChain)
	mux.Handle("GET /ready", healthChain)

	businessChain := Chain(h, common...)
	mux.Handle("GET /token", businessChain)
	mux.Handle("POST /token", businessChain)
	mux.Handle("DELETE /token", businessChain)
	mux.Handle("GET /tokens", businessChain)
	mux.Handle("GET /token-owners", businessChain)

	refreshMiddlewares := append(append([]Middleware{}, common...), networkACLIfConfigured(cfg.RefreshAllowList, logger)...)
	mux.Handle("POST /tokens/refresh", Chain(h, refreshMiddlewares...))

	reindexMiddlewares := append(append([]Middleware{}, common...), networkACLIfConfigured(cfg.ReindexAllowList, logger)...)
	mux.Handle("POST /tokens/reindex", Chain(h, reindexMiddlewares...))

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), RequestID(), Recover(logger)))
	}

	return mux
}

func networkACLIfConfigured(allowList []string, logger *slog.Logger) []Middleware {
	if len(allowList) == 0 {
		return nil
	}
	return []Middleware{NetworkACL(NetworkACLConfig{AllowList: allowList, Logger: logger})}
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		GlobalRateLimit: 1000,
		EnableAudit:     true,
	}
}
