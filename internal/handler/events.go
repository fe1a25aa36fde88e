package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/phonesentry/phonesentry/internal/model"
)

// ListEvents returns security events, optionally filtered by type
// and/or an RFC 3339 date range, most recent first.
// Query parameters: type, start, end, limit.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	eventType := model.EventType(q.Get("type"))

	var start, end time.Time
	var hasRange bool
	if q.Get("start") != "" || q.Get("end") != "" {
		var err error
		start, end, err = parseDateRange(q.Get("start"), q.Get("end"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_range", "start/end must be RFC 3339 timestamps")
			return
		}
		hasRange = true
	}

	var events []model.SecurityEvent
	var err error
	switch {
	case eventType != "" && hasRange:
		events, err = h.auditSvc.GetEventsByTypeAndDateRange(r.Context(), eventType, start, end)
	case eventType != "":
		events, err = h.auditSvc.GetEventsByType(r.Context(), eventType)
	case hasRange:
		events, err = h.auditSvc.GetEventsByDateRange(r.Context(), start, end)
	default:
		events, err = h.auditSvc.GetAllEvents(r.Context())
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list events")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list events")
		return
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, convErr := strconv.Atoi(limitStr)
		if convErr != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		if limit < len(events) {
			events = events[:limit]
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// GetEvent returns a single event by id
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.auditSvc.GetEventByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get event")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "not_found", "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent removes a single event by id
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	removed, err := h.auditSvc.DeleteEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to delete event")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete event")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "not_found", "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}

// EventCount returns event counts, optionally per type
func (h *Handler) EventCount(w http.ResponseWriter, r *http.Request) {
	eventType := model.EventType(r.URL.Query().Get("type"))

	var count int
	var err error
	if eventType != "" {
		count, err = h.auditSvc.GetEventCountByType(r.Context(), eventType)
	} else {
		count, err = h.auditSvc.GetEventCount(r.Context())
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to count events")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to count events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": count})
}

// PasswordRequest carries a password for gated log operations
type PasswordRequest struct {
	Password string `json:"password"`
}

// ClearEvents deletes all events after re-verifying the master password
func (h *Handler) ClearEvents(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	cleared, err := h.auditSvc.ClearLogs(r.Context(), req.Password)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to clear events")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to clear events")
		return
	}
	if !cleared {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": true})
}

// ExportEvents writes a sealed export artifact and returns its path
func (h *Handler) ExportEvents(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	path, err := h.auditSvc.ExportLogs(r.Context(), req.Password)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to export events")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to export events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"path": path})
}

// ImportRequest carries the artifact path and password for an import
type ImportRequest struct {
	Path     string `json:"path"`
	Password string `json:"password"`
}

// ImportEvents merges a sealed export artifact into the log
func (h *Handler) ImportEvents(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	imported, err := h.auditSvc.ImportLogs(r.Context(), req.Path, req.Password)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to import events")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to import events")
		return
	}
	if !imported {
		writeError(w, http.StatusUnprocessableEntity, "import_rejected", "Artifact could not be opened with the supplied password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"imported": true})
}

func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	start := time.Time{}
	end := time.Now()

	var err error
	if startStr != "" {
		if start, err = time.Parse(time.RFC3339, startStr); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if endStr != "" {
		if end, err = time.Parse(time.RFC3339, endStr); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return start, end, nil
}
