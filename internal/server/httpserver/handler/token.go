package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fleetkit/tokenreg/internal/core/domain"
	"github.com/fleetkit/tokenreg/internal/core/hash"
	"github.com/fleetkit/tokenreg/internal/core/service"
)

// handleGetToken handles GET /token (§6).
func (h *Handler) handleGetToken(w http.ResponseWriter, r *http.Request) {
	tokenName, ok := h.resolveTokenName(r)
	if !ok || tokenName == "" {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrBlankTokenName.Code, domain.ErrBlankTokenName.Message, nil)
		return
	}

	record, etag, found, err := h.registry.Get(r.Context(), tokenName)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if !found || (record.Metadata.Deleted && !includesDeleted(r)) {
		h.writeError(w, r, http.StatusNotFound, domain.ErrTokenNotFound.Code, domain.ErrTokenNotFound.Message, nil)
		return
	}

	body := tokenResponseBody(record, includesMetadata(r))
	w.Header().Set("ETag", etag)
	h.writeJSON(w, r, http.StatusOK, body)
}

// handleCreateOrUpdateToken handles POST /token (§4.5, §6).
func (h *Handler) handleCreateOrUpdateToken(w http.ResponseWriter, r *http.Request) {
	tokenName, ok := h.resolveTokenName(r)
	if !ok || tokenName == "" {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrBlankTokenName.Code, domain.ErrBlankTokenName.Message, nil)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrEmptyBody.Code, "invalid JSON request body", nil)
		return
	}

	result, err := h.registry.CreateOrUpdate(r.Context(), service.CreateOrUpdateInput{
		Token:     tokenName,
		Body:      body,
		IfMatch:   r.Header.Get("If-Match"),
		AdminMode: r.URL.Query().Get("update-mode") == "admin",
		User:      AuthenticatedUser(r.Context()),
		Request:   r,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	message := result.Message
	if message == "" {
		message = "token updated"
	}
	w.Header().Set("ETag", result.ETag)
	h.writeJSON(w, r, http.StatusOK, CreateOrUpdateResponse{
		Message:            message,
		ServiceDescription: hash.SanitizeRecord(result.Record),
	})
}

// handleDeleteToken handles DELETE /token (§4.6, §6).
func (h *Handler) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	tokenName, ok := h.resolveTokenName(r)
	if !ok || tokenName == "" {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrBlankTokenName.Code, domain.ErrBlankTokenName.Message, nil)
		return
	}

	err := h.registry.Delete(r.Context(), service.DeleteInput{
		Token:      tokenName,
		User:       AuthenticatedUser(r.Context()),
		IfMatch:    r.Header.Get("If-Match"),
		HardDelete: r.URL.Query().Get("hard-delete") == "true",
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{"message": "token " + tokenName + " deleted"})
}

// tokenResponseBody renders a token's sanitized params+metadata, adding
// the system-metadata fields (root, cluster, last-update-time,
// last-update-user, deleted) only when includeMetadata is set (§6 "plus
// system metadata when include=metadata").
func tokenResponseBody(record *domain.TokenRecord, includeMetadata bool) map[string]any {
	if includeMetadata {
		return hash.SanitizeRecord(record)
	}
	return hash.Sanitize(record.Params, domain.TokenMetadata{Owner: record.Metadata.Owner})
}

func includesMetadata(r *http.Request) bool {
	return includesOption(r, "metadata")
}

func includesDeleted(r *http.Request) bool {
	return includesOption(r, "deleted")
}

func includesOption(r *http.Request, option string) bool {
	for _, v := range r.URL.Query()["include"] {
		if v == option {
			return true
		}
	}
	return false
}
