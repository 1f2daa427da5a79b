package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fleetkit/tokenreg/internal/core/domain"
	"github.com/fleetkit/tokenreg/internal/core/service"
)

// HostResolver maps request headers to a token name when a request omits
// the `token` query parameter (§6 collaborator "host-resolver: headers ->
// token?").
type HostResolver func(http.Header) (token string, ok bool)

// Handler is the main HTTP handler that routes requests to the registry.
type Handler struct {
	registry     *service.Registry
	reindexer    *service.Reindexer
	hostResolver HostResolver
	logger       *slog.Logger
	mux          *http.ServeMux
}

// New creates a Handler wired to registry and reindexer. hostResolver may
// be nil, in which case requests must supply an explicit `token` query.
func New(registry *service.Registry, reindexer *service.Reindexer, hostResolver HostResolver, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		registry:     registry,
		reindexer:    reindexer,
		hostResolver: hostResolver,
		logger:       logger,
		mux:          http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("GET /token", h.handleGetToken)
	h.mux.HandleFunc("POST /token", h.handleCreateOrUpdateToken)
	h.mux.HandleFunc("DELETE /token", h.handleDeleteToken)

	h.mux.HandleFunc("GET /tokens", h.handleListTokens)
	h.mux.HandleFunc("GET /token-owners", h.handleTokenOwners)

	h.mux.HandleFunc("POST /tokens/refresh", h.handleTokensRefresh)
	h.mux.HandleFunc("POST /tokens/reindex", h.handleTokensReindex)
}

// resolveTokenName finds the token name a request refers to: the `token`
// query parameter takes precedence, falling back to the host resolver.
func (h *Handler) resolveTokenName(r *http.Request) (string, bool) {
	if t := r.URL.Query().Get("token"); t != "" {
		return t, true
	}
	if h.hostResolver != nil {
		return h.hostResolver(r.Header)
	}
	return "", false
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := RequestIDFromContext(r.Context())
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := RequestIDFromContext(r.Context())
	response := NewErrorResponse(requestID, code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// handleServiceError converts a registry error into an HTTP response.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsRegistryError(err, "") {
		code := domain.GetErrorCode(err)
		status := errorCodeToHTTPStatus(code)
		h.writeError(w, r, status, code, err.Error(), nil)
		return
	}

	h.logger.Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternal.Code, "internal server error", nil)
}

// errorCodeToHTTPStatus maps RegistryError codes to HTTP status codes
// (§7).
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4050"):
		return http.StatusMethodNotAllowed
	case strings.HasSuffix(code, "-4120"):
		return http.StatusPreconditionFailed
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case code == domain.ErrUnauthenticated.Code:
		return http.StatusUnauthorized
	case strings.HasPrefix(code, "TR-VALID-"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "TR-AUTHZ-"):
		return http.StatusForbidden
	case strings.HasPrefix(code, "TR-SYS-"):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
