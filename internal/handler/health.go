package handler

import (
	"net/http"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health returns the health status of the agent
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: "0.1.0",
	})
}

// StatusResponse reports the device's current posture
type StatusResponse struct {
	Protected    bool `json:"protected"`
	PanicMode    bool `json:"panicMode"`
	PasswordSet  bool `json:"passwordSet"`
	BatteryLevel int  `json:"batteryLevel"`
	EventCount   int  `json:"eventCount"`
}

// Status reports the protection posture, battery level and log size
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cfg, err := h.protectionSvc.Get(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load protection config")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to read status")
		return
	}
	passwordSet, err := h.credSvc.IsPasswordSet(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to check credential")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to read status")
		return
	}
	count, err := h.auditSvc.GetEventCount(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to count events")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to read status")
		return
	}

	battery, err := h.controller.BatteryLevel(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("battery level unavailable")
		battery = -1
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Protected:    cfg.Protected,
		PanicMode:    cfg.PanicMode,
		PasswordSet:  passwordSet,
		BatteryLevel: battery,
		EventCount:   count,
	})
}
