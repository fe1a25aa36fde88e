package handler

import (
	"net/http"

	"github.com/phonesentry/phonesentry/internal/model"
)

// ListTrustedDevices returns the trusted peripheral set
func (h *Handler) ListTrustedDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.trustSvc.All(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list trusted devices")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list trusted devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"devices": devices,
		"count":   len(devices),
	})
}

// AddTrustedDeviceRequest is the trust-grant payload
type AddTrustedDeviceRequest struct {
	DeviceID    string `json:"deviceId"`
	DeviceName  string `json:"deviceName"`
	Description string `json:"description,omitempty"`
}

// AddTrustedDevice grants transfer trust to a peripheral
func (h *Handler) AddTrustedDevice(w http.ResponseWriter, r *http.Request) {
	var req AddTrustedDeviceRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "deviceId is required")
		return
	}

	err := h.trustSvc.Add(r.Context(), model.TrustedDevice{
		DeviceID:    req.DeviceID,
		DeviceName:  req.DeviceName,
		Description: req.Description,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to add trusted device")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to add trusted device")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"trusted": true})
}

// RemoveTrustedDevice revokes transfer trust from a peripheral
func (h *Handler) RemoveTrustedDevice(w http.ResponseWriter, r *http.Request) {
	removed, err := h.trustSvc.Remove(r.Context(), r.PathValue("id"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to remove trusted device")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to remove trusted device")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "not_found", "Device is not trusted")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"removed": true})
}

// ClearTrustedDevices revokes trust from every peripheral
func (h *Handler) ClearTrustedDevices(w http.ResponseWriter, r *http.Request) {
	if err := h.trustSvc.Clear(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("failed to clear trusted devices")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to clear trusted devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": true})
}

// ConnectionEventRequest is the peripheral-connected payload posted by
// the platform USB adapter
type ConnectionEventRequest struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
}

// HandleConnection answers the transfer allow/deny decision for a
// just-connected peripheral
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	var req ConnectionEventRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	decision, err := h.trustSvc.HandleConnectionEvent(r.Context(), model.ConnectionEvent{
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("trust decision failed, denying transfer")
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"decision": decision})
}
