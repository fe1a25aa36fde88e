package handler

import (
	"net/http"

	"github.com/phonesentry/phonesentry/internal/model"
)

// GetProtection returns the current protection configuration
func (h *Handler) GetProtection(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.protectionSvc.Get(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load protection config")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load configuration")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdateProtectionRequest carries the full desired configuration plus
// the master password. The configuration is replaced wholesale.
type UpdateProtectionRequest struct {
	Config   model.ProtectionConfig `json:"config"`
	Password string                 `json:"password"`
}

// UpdateProtection replaces the protection configuration after
// re-verifying the master password
func (h *Handler) UpdateProtection(w http.ResponseWriter, r *http.Request) {
	var req UpdateProtectionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	updated, err := h.protectionSvc.Update(r.Context(), req.Config, req.Password)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to update protection config")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to update configuration")
		return
	}
	if !updated {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid password")
		return
	}
	writeJSON(w, http.StatusOK, req.Config)
}
