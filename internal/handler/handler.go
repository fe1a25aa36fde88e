package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/phonesentry/phonesentry/internal/auth"
	"github.com/phonesentry/phonesentry/internal/config"
	"github.com/phonesentry/phonesentry/internal/device"
	"github.com/phonesentry/phonesentry/internal/logger"
	"github.com/phonesentry/phonesentry/internal/service"
)

// Handler holds all HTTP handlers for the local admin API
type Handler struct {
	log           *logger.Logger
	cfg           *config.Config
	credSvc       *service.CredentialService
	auditSvc      *service.AuditService
	protectionSvc *service.ProtectionService
	commandSvc    *service.CommandService
	trustSvc      *service.TrustService
	tokenSvc      *auth.TokenService
	controller    device.Controller
}

// New creates a new Handler instance
func New(log *logger.Logger, cfg *config.Config, credSvc *service.CredentialService, auditSvc *service.AuditService, protectionSvc *service.ProtectionService, commandSvc *service.CommandService, trustSvc *service.TrustService, tokenSvc *auth.TokenService, controller device.Controller) *Handler {
	return &Handler{
		log:           log,
		cfg:           cfg,
		credSvc:       credSvc,
		auditSvc:      auditSvc,
		protectionSvc: protectionSvc,
		commandSvc:    commandSvc,
		trustSvc:      trustSvc,
		tokenSvc:      tokenSvc,
		controller:    controller,
	}
}

// JSON helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
