package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/phonesentry/phonesentry/internal/model"
	"github.com/phonesentry/phonesentry/internal/service"
)

// LoginRequest is the admin API login payload
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries the issued admin access token
type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Login verifies the master password and issues an admin access token.
// Failed attempts are recorded as authentication-failure events.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	match, err := h.credSvc.VerifyPassword(r.Context(), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrPasswordNotSet) {
			writeError(w, http.StatusConflict, "password_not_set", "No master password has been configured")
			return
		}
		h.log.Error().Err(err).Msg("credential check failed during admin login")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to verify credentials")
		return
	}
	if !match {
		if err := h.auditSvc.LogEvent(r.Context(), model.SecurityEvent{
			Type:        model.EventAuthFailure,
			Description: "Admin API login rejected: password mismatch",
			Metadata:    map[string]interface{}{"operation": "admin_login", "remote_addr": r.RemoteAddr},
		}); err != nil {
			h.log.Error().Err(err).Msg("failed to record admin login failure")
		}
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid password")
		return
	}

	token, expiry, err := h.tokenSvc.GenerateToken()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to issue admin token")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiry,
	})
}

// ChangePasswordRequest is the set/change master password payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword sets or changes the master password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	err := h.credSvc.SetPassword(r.Context(), req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, service.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, "password_too_short", "New password does not meet the minimum length")
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Current password is incorrect")
		return
	case err != nil:
		h.log.Error().Err(err).Msg("failed to change master password")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to change password")
		return
	}

	if err := h.auditSvc.LogEvent(r.Context(), model.SecurityEvent{
		Type:        model.EventPasswordChanged,
		Description: "Master password changed",
	}); err != nil {
		h.log.Error().Err(err).Msg("failed to record password change")
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Password updated"})
}
