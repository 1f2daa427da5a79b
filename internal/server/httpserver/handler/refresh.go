package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fleetkit/tokenreg/internal/core/domain"
	"github.com/fleetkit/tokenreg/internal/core/service"
)

// handleTokensRefresh handles POST /tokens/refresh, the peer-only
// recipient side of §4.8.
func (h *Handler) handleTokensRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrEmptyBody.Code, "invalid JSON request body", nil)
		return
	}

	if err := h.registry.ApplyRefresh(r.Context(), service.RefreshMessage{
		Token: req.Token,
		Owner: req.Owner,
		Index: req.Index,
	}); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{"message": "refreshed"})
}

// handleTokensReindex handles POST /tokens/reindex (operator-only, §4.7).
func (h *Handler) handleTokensReindex(w http.ResponseWriter, r *http.Request) {
	if h.reindexer == nil {
		h.writeError(w, r, http.StatusMethodNotAllowed, domain.ErrMethodNotAllowed.Code, "reindex not configured", nil)
		return
	}
	if err := h.reindexer.Run(r.Context()); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, ReindexResponse{Message: "reindex complete"})
}
