package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/phonesentry/phonesentry/internal/model"
)

// EventRecorder appends security events to the audit log.
type EventRecorder interface {
	LogEvent(ctx context.Context, event model.SecurityEvent) error
}

// Recover turns handler panics into 500 responses. A crash in the admin
// surface is itself a security-relevant occurrence, so the panic is
// appended to the audit log as well as the process log.
func (m *Middleware) Recover(events EventRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID := GetRequestID(r.Context())
					m.log.Error().
						Interface("error", err).
						Str("stack", string(debug.Stack())).
						Str("request_id", requestID).
						Str("path", r.URL.Path).
						Str("method", r.Method).
						Msg("panic recovered")

					if events != nil {
						if logErr := events.LogEvent(r.Context(), model.SecurityEvent{
							Type:        model.EventAgentPanic,
							Description: "Admin API handler panicked",
							Metadata: map[string]interface{}{
								"panic":      fmt.Sprint(err),
								"method":     r.Method,
								"path":       r.URL.Path,
								"request_id": requestID,
							},
						}); logErr != nil {
							m.log.Error().Err(logErr).Msg("failed to record panic event")
						}
					}

					http.Error(w, `{"error":"internal_server_error","message":"An unexpected error occurred"}`, http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
