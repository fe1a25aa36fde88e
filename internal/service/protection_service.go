package service

import (
	"context"
	"errors"
	"sync"

	"github.com/phonesentry/phonesentry/internal/config"
	"github.com/phonesentry/phonesentry/internal/logger"
	"github.com/phonesentry/phonesentry/internal/model"
	"github.com/phonesentry/phonesentry/internal/repository"
)

// ProtectionService holds the device's protection posture and gates
// every change behind master-password verification. Updates replace the
// whole configuration; a failed update leaves every field untouched.
type ProtectionService struct {
	configRepo *repository.ConfigRepository
	credSvc    *CredentialService
	auditSvc   *AuditService
	cfg        *config.Config
	log        *logger.Logger

	// Serializes verify-persist-emit so two concurrent updates can
	// never interleave into a mixed configuration.
	mu sync.Mutex
}

// NewProtectionService creates a new ProtectionService
func NewProtectionService(configRepo *repository.ConfigRepository, credSvc *CredentialService, auditSvc *AuditService, cfg *config.Config, log *logger.Logger) *ProtectionService {
	return &ProtectionService{
		configRepo: configRepo,
		credSvc:    credSvc,
		auditSvc:   auditSvc,
		cfg:        cfg,
		log:        log.WithComponent("protection_service"),
	}
}

// Get returns the current protection configuration. Before anything has
// been persisted it returns the all-disabled default, seeded with the
// emergency contact from the agent configuration when one is set. Once
// a configuration has been saved, Get returns exactly what was saved:
// clearing the contact through Update stays cleared.
func (s *ProtectionService) Get(ctx context.Context) (model.ProtectionConfig, error) {
	cfg, err := s.configRepo.Load(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		cfg = model.DefaultProtectionConfig()
		if s.cfg.Protection.EmergencyContact != "" {
			cfg.EmergencyContact = s.cfg.Protection.EmergencyContact
		}
		return cfg, nil
	}
	if err != nil {
		return model.ProtectionConfig{}, err
	}
	return cfg, nil
}

// Update verifies the password and, on a match, replaces the persisted
// configuration wholesale and records a configuration-changed event.
// On a mismatch it returns false with the configuration byte-for-byte
// unchanged and records the rejection. An empty or wrong password is a
// plain mismatch, never a special case.
func (s *ProtectionService) Update(ctx context.Context, newConfig model.ProtectionConfig, password string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, err := s.credSvc.VerifyPassword(ctx, password)
	if err != nil {
		// Fail closed: a credential store failure is a denial
		return false, err
	}
	if !match {
		if err := s.auditSvc.LogEvent(ctx, model.SecurityEvent{
			Type:        model.EventConfigRejected,
			Description: "Configuration update rejected: password mismatch",
			Metadata:    map[string]interface{}{"reason": model.RejectReasonInvalidPassword},
		}); err != nil {
			s.log.Error().Err(err).Msg("failed to record config rejection")
		}
		return false, nil
	}

	oldConfig, err := s.configRepo.Load(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		oldConfig = model.DefaultProtectionConfig()
	} else if err != nil {
		return false, err
	}
	if err := s.configRepo.Save(ctx, newConfig); err != nil {
		return false, err
	}

	if err := s.auditSvc.LogEvent(ctx, model.SecurityEvent{
		Type:        model.EventConfigChanged,
		Description: "Protection configuration updated",
		Metadata:    configChangeSummary(oldConfig, newConfig),
	}); err != nil {
		return false, err
	}
	s.log.Info().Bool("protected", newConfig.Protected).Msg("protection configuration updated")
	return true, nil
}

// configChangeSummary lists which fields changed, without recording the
// full configuration contents.
func configChangeSummary(old, updated model.ProtectionConfig) map[string]interface{} {
	var changed []string
	flags := []struct {
		name string
		old  bool
		new  bool
	}{
		{"protected", old.Protected, updated.Protected},
		{"kiosk_mode", old.KioskMode, updated.KioskMode},
		{"stealth_mode", old.StealthMode, updated.StealthMode},
		{"panic_mode", old.PanicMode, updated.PanicMode},
		{"block_settings", old.BlockSettings, updated.BlockSettings},
		{"block_file_managers", old.BlockFileManagers, updated.BlockFileManagers},
		{"monitor_calls", old.MonitorCalls, updated.MonitorCalls},
		{"monitor_airplane_mode", old.MonitorAirplaneMode, updated.MonitorAirplaneMode},
		{"monitor_sim_card", old.MonitorSimCard, updated.MonitorSimCard},
		{"daily_report", old.DailyReport, updated.DailyReport},
	}
	for _, f := range flags {
		if f.old != f.new {
			changed = append(changed, f.name)
		}
	}
	summary := map[string]interface{}{
		"changed_flags":             changed,
		"emergency_contact_changed": old.EmergencyContact != updated.EmergencyContact,
	}
	return summary
}
