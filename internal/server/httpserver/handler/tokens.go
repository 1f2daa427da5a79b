package handler

import (
	"net/http"

	"github.com/fleetkit/tokenreg/internal/core/domain"
	"github.com/fleetkit/tokenreg/internal/core/service"
)

// handleListTokens handles GET /tokens (§4.9, §6).
func (h *Handler) handleListTokens(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters := make(map[string][]string)
	for key, values := range query {
		if key == "owner" || key == "include" || key == "can-manage-as-user" || key == "token" {
			continue
		}
		if domain.IsRecognizedParameterKey(key) {
			filters[key] = values
		}
	}

	entries, err := h.registry.List(r.Context(), service.ListInput{
		Owners:           query["owner"],
		IncludeDeleted:   includesDeleted(r),
		ShowMetadata:     includesMetadata(r),
		CanManageAs:      query.Get("can-manage-as-user"),
		ParameterFilters: filters,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, listedTokensToResponse(entries))
}

// handleTokenOwners handles GET /token-owners (§4.9 "owners-map").
func (h *Handler) handleTokenOwners(w http.ResponseWriter, r *http.Request) {
	directory, err := h.registry.OwnersMap(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, directory)
}

func listedTokensToResponse(entries []service.ListedToken) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		item := map[string]any{
			"token": entry.Token,
			"owner": entry.Owner,
		}
		for k, v := range paramFields(entry) {
			item[k] = v
		}
		if entry.Deleted != nil {
			item[domain.KeyRoot] = entry.Root
			item[domain.KeyCluster] = entry.Cluster
			item[domain.KeyLastUpdateUser] = entry.LastUpdateUser
			item[domain.KeyLastUpdateTime] = entry.LastUpdateTime
			item[domain.KeyDeleted] = *entry.Deleted
			item["etag"] = entry.ETag
		}
		out = append(out, item)
	}
	return out
}

func paramFields(entry service.ListedToken) map[string]any {
	fields := map[string]any{}
	if entry.Params.Cmd != "" {
		fields[domain.KeyCmd] = entry.Params.Cmd
	}
	if entry.Params.CPUs != 0 {
		fields[domain.KeyCPUs] = entry.Params.CPUs
	}
	if entry.Params.MemoryMB != 0 {
		fields[domain.KeyMemoryMB] = entry.Params.MemoryMB
	}
	if len(entry.Params.Ports) > 0 {
		fields[domain.KeyPorts] = entry.Params.Ports
	}
	if entry.Params.HealthCheck != "" {
		fields[domain.KeyHealthCheck] = entry.Params.HealthCheck
	}
	if entry.Params.Authentication != "" {
		fields[domain.KeyAuthentication] = entry.Params.Authentication
	}
	if entry.Params.PermittedUser != "" {
		fields[domain.KeyPermittedUser] = entry.Params.PermittedUser
	}
	if entry.Params.InterstitialSecs != 0 {
		fields[domain.KeyInterstitialSecs] = entry.Params.InterstitialSecs
	}
	if entry.Params.RunAsUser != "" {
		fields[domain.KeyRunAsUser] = entry.Params.RunAsUser
	}
	return fields
}
