// Package device defines the privileged device-action boundary. The
// agent core dispatches into a Controller; the platform bindings that
// actually lock the screen, wipe storage, fix a location or sound the
// alarm are supplied by the host integration.
package device

import (
	"context"
	"time"

	"github.com/phonesentry/phonesentry/internal/logger"
	"github.com/phonesentry/phonesentry/internal/model"
)

// Controller performs privileged device actions. Every action is
// fallible; failures are reported to the caller but never retried here.
type Controller interface {
	Lock(ctx context.Context) error
	Wipe(ctx context.Context) error
	Locate(ctx context.Context) (model.LocationFix, error)
	Alarm(ctx context.Context) error
	BatteryLevel(ctx context.Context) (int, error)
}

// StubController logs every action instead of performing it. It stands
// in for the platform bindings during development and in tests.
type StubController struct {
	log *logger.Logger
}

// NewStubController creates a StubController
func NewStubController(log *logger.Logger) *StubController {
	return &StubController{log: log.WithComponent("device")}
}

func (c *StubController) Lock(ctx context.Context) error {
	c.log.Info().Msg("device lock requested")
	return nil
}

func (c *StubController) Wipe(ctx context.Context) error {
	c.log.Warn().Msg("device wipe requested")
	return nil
}

func (c *StubController) Locate(ctx context.Context) (model.LocationFix, error) {
	c.log.Info().Msg("location fix requested")
	return model.LocationFix{FixedAt: time.Now()}, nil
}

func (c *StubController) Alarm(ctx context.Context) error {
	c.log.Info().Msg("alarm playback requested")
	return nil
}

func (c *StubController) BatteryLevel(ctx context.Context) (int, error) {
	return 100, nil
}
