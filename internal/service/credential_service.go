package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phonesentry/phonesentry/internal/auth"
	"github.com/phonesentry/phonesentry/internal/config"
	"github.com/phonesentry/phonesentry/internal/logger"
	"github.com/phonesentry/phonesentry/internal/model"
	"github.com/phonesentry/phonesentry/internal/repository"
)

// Credential service errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooShort   = errors.New("password does not meet the minimum length")
	ErrPasswordNotSet     = errors.New("master password has not been set")
)

// CredentialService holds the salted master password hash and the
// failed-attempt counter, and answers candidate password checks. Wrong
// passwords are expected, frequent, security-relevant outcomes: they
// are reported as a boolean, never as an error.
type CredentialService struct {
	credRepo  *repository.CredentialRepository
	eventRepo *repository.EventRepository
	cfg       *config.Config
	log       *logger.Logger
}

// NewCredentialService creates a new CredentialService
func NewCredentialService(credRepo *repository.CredentialRepository, eventRepo *repository.EventRepository, cfg *config.Config, log *logger.Logger) *CredentialService {
	return &CredentialService{
		credRepo:  credRepo,
		eventRepo: eventRepo,
		cfg:       cfg,
		log:       log.WithComponent("credential_service"),
	}
}

// IsPasswordSet reports whether a master password has been configured.
func (s *CredentialService) IsPasswordSet(ctx context.Context) (bool, error) {
	_, err := s.credRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get credential: %w", err)
	}
	return true, nil
}

// VerifyPassword checks a candidate against the stored hash. The check
// is exact and case-sensitive; an empty candidate is a plain mismatch.
// While the credential is locked out every candidate fails. Storage
// failures are returned as errors so callers can fail closed.
func (s *CredentialService) VerifyPassword(ctx context.Context, candidate string) (bool, error) {
	cred, err := s.credRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrPasswordNotSet
		}
		return false, fmt.Errorf("failed to get credential: %w", err)
	}

	if cred.IsLocked() {
		if err := s.eventRepo.Record(ctx, model.SecurityEvent{
			ID:          generateID("evt"),
			Timestamp:   time.Now(),
			Type:        model.EventAuthFailure,
			Description: "Password verification refused: credential locked out",
			Metadata: map[string]interface{}{
				"reason":       model.RejectReasonLockedOut,
				"locked_until": cred.LockedUntil.Format(time.RFC3339),
			},
		}); err != nil {
			s.log.Error().Err(err).Msg("failed to record lockout refusal")
		}
		s.log.Warn().Time("locked_until", *cred.LockedUntil).Msg("verification refused while locked out")
		return false, nil
	}

	match, err := auth.VerifyPassword(candidate, cred.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		s.handleFailedAttempt(ctx, cred)
		return false, nil
	}

	// Reset the counter on success
	if cred.FailedAttempts > 0 || cred.LockedUntil != nil {
		cred.FailedAttempts = 0
		cred.LockedUntil = nil
		if err := s.credRepo.Save(ctx, cred); err != nil {
			s.log.Error().Err(err).Msg("failed to reset failed attempts")
		}
	}
	return true, nil
}

// SetPassword sets or changes the master password. The first set
// requires no current password; afterwards the current password must
// verify or ErrInvalidCredentials is returned.
func (s *CredentialService) SetPassword(ctx context.Context, current, newPassword string) error {
	if len(newPassword) < s.cfg.Security.Password.MinLength {
		return ErrPasswordTooShort
	}

	set, err := s.IsPasswordSet(ctx)
	if err != nil {
		return err
	}
	if set {
		match, err := s.VerifyPassword(ctx, current)
		if err != nil {
			return err
		}
		if !match {
			return ErrInvalidCredentials
		}
	}

	params := auth.NewParams(
		s.cfg.Security.Password.Argon2Memory,
		s.cfg.Security.Password.Argon2Iterations,
		s.cfg.Security.Password.Argon2Parallelism,
	)
	hash, err := auth.HashPassword(newPassword, params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	cred := &model.Credential{
		PasswordHash: hash,
		UpdatedAt:    time.Now(),
	}
	if err := s.credRepo.Save(ctx, cred); err != nil {
		return err
	}
	s.log.Info().Msg("master password updated")
	return nil
}

// handleFailedAttempt manages the progressive lockout counter
func (s *CredentialService) handleFailedAttempt(ctx context.Context, cred *model.Credential) {
	cred.FailedAttempts++

	var lockDuration time.Duration
	switch {
	case cred.FailedAttempts >= 20:
		// Effectively permanent - requires the admin API to unlock
		lockDuration = 24 * 365 * time.Hour
	case cred.FailedAttempts >= 15:
		lockDuration = 2 * time.Hour
	case cred.FailedAttempts >= 10:
		lockDuration = 30 * time.Minute
	case cred.FailedAttempts >= 5:
		lockDuration = 5 * time.Minute
	}

	if lockDuration > 0 {
		until := time.Now().Add(lockDuration)
		cred.LockedUntil = &until
		s.log.Warn().
			Int("attempts", cred.FailedAttempts).
			Dur("lock_duration", lockDuration).
			Msg("credential locked due to failed attempts")
	}

	if err := s.credRepo.Save(ctx, cred); err != nil {
		s.log.Error().Err(err).Msg("failed to persist failed attempt counter")
	}
}
