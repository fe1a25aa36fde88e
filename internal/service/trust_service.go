package service

import (
	"context"
	"errors"
	"time"

	"github.com/phonesentry/phonesentry/internal/logger"
	"github.com/phonesentry/phonesentry/internal/model"
	"github.com/phonesentry/phonesentry/internal/repository"
)

// TrustService maintains the set of peripheral identities allowlisted
// for data transfer and answers the allow/deny decision when a
// peripheral connects. The decision is default-deny: an unknown device
// is reverted to charging-only before any transfer mode may stay active.
type TrustService struct {
	deviceRepo *repository.DeviceRepository
	auditSvc   *AuditService
	log        *logger.Logger
}

// NewTrustService creates a new TrustService
func NewTrustService(deviceRepo *repository.DeviceRepository, auditSvc *AuditService, log *logger.Logger) *TrustService {
	return &TrustService{
		deviceRepo: deviceRepo,
		auditSvc:   auditSvc,
		log:        log.WithComponent("trust_service"),
	}
}

// Restore loads the persisted trusted set. Corrupt or unparseable
// storage resets to an empty set with a warning instead of failing
// agent startup.
func (s *TrustService) Restore(ctx context.Context) error {
	if err := s.deviceRepo.Restore(ctx); err != nil {
		if errors.Is(err, repository.ErrCorruptDeviceSet) {
			s.log.Warn().Err(err).Msg("trusted device set is corrupt, resetting to empty")
			return nil
		}
		return err
	}
	return nil
}

// IsTrusted reports whether the device id is allowlisted.
func (s *TrustService) IsTrusted(ctx context.Context, deviceID string) (bool, error) {
	return s.deviceRepo.IsTrusted(ctx, deviceID)
}

// All returns the trusted devices.
func (s *TrustService) All(ctx context.Context) ([]model.TrustedDevice, error) {
	return s.deviceRepo.All(ctx)
}

// Add grants transfer trust to a device. Re-adding an existing id is a
// no-op success: the set does not grow and no duplicate event is
// recorded.
func (s *TrustService) Add(ctx context.Context, d model.TrustedDevice) error {
	if d.AddedAt.IsZero() {
		d.AddedAt = time.Now()
	}
	added, err := s.deviceRepo.Add(ctx, d)
	if err != nil {
		return err
	}
	if !added {
		return nil
	}
	return s.auditSvc.LogEvent(ctx, model.SecurityEvent{
		Type:        model.EventDeviceTrusted,
		Description: "Device trust granted: " + d.DeviceName,
		Metadata: map[string]interface{}{
			"device_id":   d.DeviceID,
			"device_name": d.DeviceName,
		},
	})
}

// Remove revokes transfer trust, reporting whether a device was removed.
func (s *TrustService) Remove(ctx context.Context, deviceID string) (bool, error) {
	removed, err := s.deviceRepo.Remove(ctx, deviceID)
	if err != nil || !removed {
		return removed, err
	}
	if err := s.auditSvc.LogEvent(ctx, model.SecurityEvent{
		Type:        model.EventDeviceUntrusted,
		Description: "Device trust revoked",
		Metadata:    map[string]interface{}{"device_id": deviceID},
	}); err != nil {
		return true, err
	}
	return true, nil
}

// Clear revokes trust from every device.
func (s *TrustService) Clear(ctx context.Context) error {
	if err := s.deviceRepo.Clear(ctx); err != nil {
		return err
	}
	return s.auditSvc.LogEvent(ctx, model.SecurityEvent{
		Type:        model.EventDeviceUntrusted,
		Description: "Device trust revoked for all devices",
		Metadata:    map[string]interface{}{"scope": "all"},
	})
}

// HandleConnectionEvent decides whether a just-connected peripheral may
// keep a data-transfer mode active. Unknown devices - and any lookup
// failure - deny.
func (s *TrustService) HandleConnectionEvent(ctx context.Context, ev model.ConnectionEvent) (model.TransferDecision, error) {
	decision := model.TransferDenied

	trusted, err := s.deviceRepo.IsTrusted(ctx, ev.DeviceID)
	if err != nil {
		s.log.Error().Err(err).Str("device_id", ev.DeviceID).Msg("trust lookup failed, denying transfer")
	} else if trusted {
		decision = model.TransferAllowed
	}

	if logErr := s.auditSvc.LogEvent(ctx, model.SecurityEvent{
		Type:        model.EventDeviceConnected,
		Description: "Peripheral connected: " + ev.DeviceName,
		Metadata: map[string]interface{}{
			"device_id":   ev.DeviceID,
			"device_name": ev.DeviceName,
			"decision":    string(decision),
		},
	}); logErr != nil {
		s.log.Error().Err(logErr).Msg("failed to record connection event")
	}

	return decision, err
}
