// Package httpserver provides the HTTP server for the token registry.
package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fleetkit/tokenreg/internal/core/domain"
	"github.com/fleetkit/tokenreg/internal/server/httpserver/handler"
	"github.com/fleetkit/tokenreg/pkg/nodeid"
)

// contextKey namespaces values this package stores on the request context,
// distinct from the handler package's own context keys.
type contextKey string

const contextKeyStartTime contextKey = "start_time"

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares in the order given: the first middleware wraps
// outermost, so it runs first and sees the response last.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// AuthConfig configures the Auth middleware.
type AuthConfig struct {
	// TrustedUserHeader is the header an upstream identity proxy sets with
	// the caller's authenticated username. Authentication itself happens
	// outside the registry (SPEC_FULL §6); this middleware only relays the
	// identity into the request context the way the proxy already
	// established it.
	TrustedUserHeader string
}

// RequestID assigns a request ID (from an inbound header, or freshly
// minted) and stores it via handler.WithRequestID so the handler package's
// response envelope and the Audit middleware agree on the same value.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = "req-" + nodeid.New()
			}

			ctx := handler.WithRequestID(r.Context(), requestID)
			ctx = context.WithValue(ctx, contextKeyStartTime, time.Now())

			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Auth relays an externally-authenticated identity into the request
// context. It never rejects a request outright: a request with no trusted
// user header proceeds with an empty identity, and the registry's own
// per-owner authorization (CanManageToken / CanRunAs / CanAdministerToken)
// is what actually denies mutations for an unauthenticated caller.
func Auth(cfg AuthConfig) Middleware {
	headerName := cfg.TrustedUserHeader
	if headerName == "" {
		headerName = "X-Authenticated-User"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := r.Header.Get(headerName); user != "" {
				r = r.WithContext(handler.WithAuthenticatedUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit applies a per-client-IP token bucket via golang.org/x/time/rate,
// refilled continuously at requestsPerSecond and capped at that same burst
// size (SPEC_FULL §11 "per-IP token-bucket rate limiting middleware").
func RateLimit(requestsPerSecond int) Middleware {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)
	limit := rate.Limit(requestsPerSecond)

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[ip]
		if !ok {
			l = rate.NewLimiter(limit, requestsPerSecond)
			limiters[ip] = l
		}
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiterFor(getClientIP(r)).Allow() {
				w.Header().Set("Retry-After", "1")
				httpError(w, r, http.StatusTooManyRequests, domain.ErrRateLimited.Code, domain.ErrRateLimited.Message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Audit logs one structured line per request.
func Audit(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			startTime, _ := r.Context().Value(contextKeyStartTime).(time.Time)
			var duration time.Duration
			if !startTime.IsZero() {
				duration = time.Since(startTime)
			}

			attrs := []any{
				"request_id", handler.RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
				"client_ip", getClientIP(r),
			}
			if user := handler.AuthenticatedUser(r.Context()); user != "" {
				attrs = append(attrs, "user", user)
			}

			switch {
			case wrapped.statusCode >= 500:
				logger.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				logger.Warn("request completed with client error", attrs...)
			default:
				logger.Info("request completed", attrs...)
			}
		})
	}
}

// Recover converts a panic in a downstream handler into a 500 response
// through the same envelope the handler package uses for every other
// error, instead of tearing down the connection.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"request_id", handler.RequestIDFromContext(r.Context()),
						"error", err,
						"path", r.URL.Path,
					)
					httpError(w, r, http.StatusInternalServerError, domain.ErrInternal.Code, domain.ErrInternal.Message)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// NetworkACLConfig configures the NetworkACL middleware.
type NetworkACLConfig struct {
	// AllowList is a set of IPs and/or CIDR blocks. An empty list means no
	// restriction.
	AllowList []string
	Logger    *slog.Logger
}

// NetworkACL restricts access to clients whose address matches an entry in
// cfg.AllowList, gating the operator-only reindex and peer-only refresh
// endpoints (SPEC_FULL §12 "Admin network ACL").
func NetworkACL(cfg NetworkACLConfig) Middleware {
	var networks []*net.IPNet
	var singleIPs []net.IP

	for _, entry := range cfg.AllowList {
		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Warn("invalid CIDR in allowlist", "entry", entry, "error", err)
				}
				continue
			}
			networks = append(networks, ipNet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("invalid IP in allowlist", "entry", entry)
			}
			continue
		}
		singleIPs = append(singleIPs, ip)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(networks) == 0 && len(singleIPs) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := getClientIP(r)
			ip := net.ParseIP(clientIP)
			if ip == nil {
				httpError(w, r, http.StatusForbidden, domain.ErrNetworkDenied.Code, domain.ErrNetworkDenied.Message)
				return
			}

			for _, allowed := range singleIPs {
				if allowed.Equal(ip) {
					next.ServeHTTP(w, r)
					return
				}
			}
			for _, network := range networks {
				if network.Contains(ip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			if cfg.Logger != nil {
				cfg.Logger.Warn("request denied by network ACL", "client_ip", clientIP, "path", r.URL.Path)
			}
			httpError(w, r, http.StatusForbidden, domain.ErrNetworkDenied.Code, domain.ErrNetworkDenied.Message)
		})
	}
}

// CORS adds Cross-Origin Resource Sharing headers.
func CORS(allowedOrigins []string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := len(allowedOrigins) == 0
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}

			if allowed && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-Match, X-Authenticated-User, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
// written, for Audit's benefit.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// httpError writes a response through the same envelope the handler
// package uses, so a client can't tell a middleware-rejected request from
// one the registry itself rejected.
func httpError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := handler.RequestIDFromContext(r.Context())
	response := handler.NewErrorResponse(requestID, code, message, nil)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// getClientIP extracts the client address, preferring proxy-set headers
// over the raw connection address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
