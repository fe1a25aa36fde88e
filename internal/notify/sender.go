// Package notify defines the outbound text transport boundary. The
// concrete SMS/WhatsApp gateways live outside the agent core; they
// implement Sender and are selected by configuration.
package notify

import (
	"context"

	"github.com/phonesentry/phonesentry/internal/logger"
)

// Sender delivers a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, address, text string) error
}

// LogSender writes outbound texts to the agent log instead of a
// carrier. It is the default backend in development.
type LogSender struct {
	log *logger.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log.WithComponent("notify")}
}

// Send logs the outbound message.
func (s *LogSender) Send(ctx context.Context, address, text string) error {
	s.log.Info().
		Str("to", address).
		Str("text", text).
		Msg("outbound text")
	return nil
}

// NullSender discards outbound texts.
type NullSender struct{}

// Send does nothing.
func (NullSender) Send(ctx context.Context, address, text string) error {
	return nil
}
