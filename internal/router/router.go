package router

import (
	"net/http"
	"time"

	"github.com/phonesentry/phonesentry/internal/auth"
	"github.com/phonesentry/phonesentry/internal/handler"
	"github.com/phonesentry/phonesentry/internal/logger"
	"github.com/phonesentry/phonesentry/internal/middleware"
)

// New creates and configures the admin API router
func New(h *handler.Handler, mw *middleware.Middleware, log *logger.Logger, tokenSvc *auth.TokenService) http.Handler {
	mux := http.NewServeMux()

	// Health endpoint (no auth required)
	mux.HandleFunc("GET /health", h.Health)

	// Login is rate limited: it is the only password oracle on the API
	loginRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  5,
		Window: 15 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	mux.Handle("POST /api/v1/auth/login", loginRateLimit(http.HandlerFunc(h.Login)))

	// Everything else requires an admin token
	authMw := mw.Auth(tokenSvc)

	mux.Handle("POST /api/v1/auth/password", authMw(http.HandlerFunc(h.ChangePassword)))

	mux.Handle("GET /api/v1/status", authMw(http.HandlerFunc(h.Status)))

	mux.Handle("GET /api/v1/events", authMw(http.HandlerFunc(h.ListEvents)))
	mux.Handle("GET /api/v1/events/count", authMw(http.HandlerFunc(h.EventCount)))
	mux.Handle("GET /api/v1/events/{id}", authMw(http.HandlerFunc(h.GetEvent)))
	mux.Handle("DELETE /api/v1/events/{id}", authMw(http.HandlerFunc(h.DeleteEvent)))
	mux.Handle("POST /api/v1/events/clear", authMw(http.HandlerFunc(h.ClearEvents)))
	mux.Handle("POST /api/v1/events/export", authMw(http.HandlerFunc(h.ExportEvents)))
	mux.Handle("POST /api/v1/events/import", authMw(http.HandlerFunc(h.ImportEvents)))

	mux.Handle("GET /api/v1/protection", authMw(http.HandlerFunc(h.GetProtection)))
	mux.Handle("PUT /api/v1/protection", authMw(http.HandlerFunc(h.UpdateProtection)))

	mux.Handle("GET /api/v1/devices", authMw(http.HandlerFunc(h.ListTrustedDevices)))
	mux.Handle("POST /api/v1/devices", authMw(http.HandlerFunc(h.AddTrustedDevice)))
	mux.Handle("DELETE /api/v1/devices/{id}", authMw(http.HandlerFunc(h.RemoveTrustedDevice)))
	mux.Handle("POST /api/v1/devices/clear", authMw(http.HandlerFunc(h.ClearTrustedDevices)))
	mux.Handle("POST /api/v1/devices/connection", authMw(http.HandlerFunc(h.HandleConnection)))

	// Transport adapters push inbound texts here
	mux.Handle("POST /api/v1/messages", authMw(http.HandlerFunc(h.HandleMessage)))

	return mux
}
