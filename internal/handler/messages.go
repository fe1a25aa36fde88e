package handler

import (
	"net/http"
)

// InboundMessageRequest is an inbound text delivered by a transport
// adapter (SMS modem, gateway webhook, test harness)
type InboundMessageRequest struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

// HandleMessage feeds an inbound text through the command
// authorization pipeline. The response never reveals whether the text
// contained a command or how it was handled; the audit log holds the
// outcome.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req InboundMessageRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.commandSvc.HandleMessage(r.Context(), req.Sender, req.Body); err != nil {
		h.log.Error().Err(err).Msg("failed to process inbound message")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to process message")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"accepted": true})
}
