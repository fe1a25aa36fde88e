package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/phonesentry/phonesentry/internal/config"
	"github.com/phonesentry/phonesentry/internal/logger"
	"github.com/phonesentry/phonesentry/internal/model"
	"github.com/phonesentry/phonesentry/internal/repository"
	"github.com/phonesentry/phonesentry/internal/storage"
)

// exportVersion is the version field of the export artifact document.
const exportVersion = 1

// exportDocument is the serialized shape of an exported log artifact
// before sealing.
type exportDocument struct {
	Version    int                   `json:"version"`
	ExportedAt time.Time             `json:"exported_at"`
	EventCount int                   `json:"event_count"`
	Events     []model.SecurityEvent `json:"events"`
}

// AuditService is the appendable, queryable, size-bounded security
// event ledger. Every subsystem reports into it; nothing else may claim
// a security-relevant occurrence happened without a record here.
type AuditService struct {
	eventRepo *repository.EventRepository
	credSvc   *CredentialService
	cfg       *config.Config
	log       *logger.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(eventRepo *repository.EventRepository, credSvc *CredentialService, cfg *config.Config, log *logger.Logger) *AuditService {
	return &AuditService{
		eventRepo: eventRepo,
		credSvc:   credSvc,
		cfg:       cfg,
		log:       log.WithComponent("audit_service"),
	}
}

// LogEvent appends the event, assigning an id and timestamp when the
// producer left them empty. Rotation completes before LogEvent returns,
// so the log never reports more than the cap afterwards. An append
// failure is returned to the caller, never swallowed.
func (s *AuditService) LogEvent(ctx context.Context, event model.SecurityEvent) error {
	if event.ID == "" {
		event.ID = generateID("evt")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.eventRepo.Record(ctx, event); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	s.log.Debug().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("event recorded")
	return nil
}

// GetAllEvents returns every event, most recent first.
func (s *AuditService) GetAllEvents(ctx context.Context) ([]model.SecurityEvent, error) {
	return s.eventRepo.All(ctx)
}

// GetEventsByType returns events of the given type, most recent first.
func (s *AuditService) GetEventsByType(ctx context.Context, eventType model.EventType) ([]model.SecurityEvent, error) {
	return s.eventRepo.ByType(ctx, eventType)
}

// GetEventsByDateRange returns events within [start, end], most recent first.
func (s *AuditService) GetEventsByDateRange(ctx context.Context, start, end time.Time) ([]model.SecurityEvent, error) {
	return s.eventRepo.ByDateRange(ctx, start, end)
}

// GetEventsByTypeAndDateRange combines the type and date filters.
func (s *AuditService) GetEventsByTypeAndDateRange(ctx context.Context, eventType model.EventType, start, end time.Time) ([]model.SecurityEvent, error) {
	return s.eventRepo.ByTypeAndDateRange(ctx, eventType, start, end)
}

// GetEventByID returns the event with the given id, or nil when absent
// (a missing event is not an error).
func (s *AuditService) GetEventByID(ctx context.Context, id string) (*model.SecurityEvent, error) {
	event, err := s.eventRepo.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return event, nil
}

// GetEventCount returns the total number of retained events.
func (s *AuditService) GetEventCount(ctx context.Context) (int, error) {
	return s.eventRepo.Count(ctx)
}

// GetEventCountByType returns the number of retained events of a type.
func (s *AuditService) GetEventCountByType(ctx context.Context, eventType model.EventType) (int, error) {
	return s.eventRepo.CountByType(ctx, eventType)
}

// GetRecentEvents returns the limit most recent events.
func (s *AuditService) GetRecentEvents(ctx context.Context, limit int) ([]model.SecurityEvent, error) {
	return s.eventRepo.Recent(ctx, limit)
}

// DeleteEvent removes one event, reporting whether it existed.
func (s *AuditService) DeleteEvent(ctx context.Context, id string) (bool, error) {
	return s.eventRepo.Delete(ctx, id)
}

// ClearLogs deletes every event after re-verifying the master password.
// On mismatch nothing is deleted and false is returned. The clearing
// itself is recorded, so a wiped log still shows who wiped it.
func (s *AuditService) ClearLogs(ctx context.Context, password string) (bool, error) {
	match, err := s.credSvc.VerifyPassword(ctx, password)
	if err != nil {
		return false, err
	}
	if !match {
		if err := s.LogEvent(ctx, model.SecurityEvent{
			Type:        model.EventAuthFailure,
			Description: "Log clearing rejected: password mismatch",
			Metadata:    map[string]interface{}{"operation": "clear_logs"},
		}); err != nil {
			s.log.Error().Err(err).Msg("failed to record clear rejection")
		}
		return false, nil
	}

	if err := s.eventRepo.DeleteAll(ctx); err != nil {
		return false, err
	}
	if err := s.LogEvent(ctx, model.SecurityEvent{
		Type:        model.EventLogsCleared,
		Description: "Security event log cleared",
	}); err != nil {
		return false, err
	}
	s.log.Info().Msg("security event log cleared")
	return true, nil
}

// ExportLogs serializes every event into a versioned document, seals it
// under a key derived from the supplied password and writes a base64
// .enc artifact. The artifact path is returned.
func (s *AuditService) ExportLogs(ctx context.Context, password string) (string, error) {
	events, err := s.eventRepo.All(ctx)
	if err != nil {
		return "", err
	}

	doc := exportDocument{
		Version:    exportVersion,
		ExportedAt: time.Now(),
		EventCount: len(events),
		Events:     events,
	}
	plaintext, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal export document: %w", err)
	}

	artifact, err := storage.SealArchive(plaintext, password)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.cfg.Storage.ExportDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}
	name := fmt.Sprintf("phonesentry-logs-%s-%s.enc", time.Now().Format("20060102-150405"), generateID(""))
	path := filepath.Join(s.cfg.Storage.ExportDir, name)
	if err := os.WriteFile(path, []byte(artifact), 0600); err != nil {
		return "", fmt.Errorf("failed to write export artifact: %w", err)
	}

	if err := s.LogEvent(ctx, model.SecurityEvent{
		Type:        model.EventLogsExported,
		Description: "Security event log exported",
		Metadata:    map[string]interface{}{"event_count": len(events)},
	}); err != nil {
		return "", err
	}
	s.log.Info().Int("event_count", len(events)).Str("path", path).Msg("logs exported")
	return path, nil
}

// ImportLogs opens an exported artifact with the supplied password and
// merges its events into the log, ignoring ids that already exist. A
// wrong password or malformed artifact returns false with the log
// unchanged; rotation is re-applied after a successful merge.
func (s *AuditService) ImportLogs(ctx context.Context, path string, password string) (bool, error) {
	artifact, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read import artifact: %w", err)
	}

	plaintext, err := storage.OpenArchive(string(artifact), password)
	if err != nil {
		s.log.Warn().Str("path", path).Msg("import rejected: cannot open artifact")
		return false, nil
	}

	var doc exportDocument
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		s.log.Warn().Str("path", path).Msg("import rejected: malformed document")
		return false, nil
	}
	if doc.Version != exportVersion {
		s.log.Warn().Int("version", doc.Version).Msg("import rejected: unsupported version")
		return false, nil
	}

	inserted, err := s.eventRepo.Import(ctx, doc.Events)
	if err != nil {
		return false, err
	}

	if err := s.LogEvent(ctx, model.SecurityEvent{
		Type:        model.EventLogsImported,
		Description: "Security event log imported",
		Metadata: map[string]interface{}{
			"event_count": doc.EventCount,
			"inserted":    inserted,
		},
	}); err != nil {
		return false, err
	}
	s.log.Info().Int("inserted", inserted).Msg("logs imported")
	return true, nil
}
