package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phonesentry/phonesentry/internal/config"
	"github.com/phonesentry/phonesentry/internal/logger"
	"github.com/phonesentry/phonesentry/internal/model"
	"github.com/phonesentry/phonesentry/internal/repository"
	"github.com/phonesentry/phonesentry/internal/storage"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// testEnv wires the service layer over a real sealed store in a
// temporary directory, with low-cost hashing parameters.
type testEnv struct {
	cfg           *config.Config
	store         *storage.Store
	eventRepo     *repository.EventRepository
	deviceRepo    *repository.DeviceRepository
	credSvc       *CredentialService
	auditSvc      *AuditService
	protectionSvc *ProtectionService
	trustSvc      *TrustService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Storage: config.StorageConfig{
			DataDir:     t.TempDir(),
			RotationCap: 1000,
			ExportDir:   t.TempDir(),
		},
		Security: config.SecurityConfig{
			Password: config.PasswordConfig{
				MinLength:         6,
				Argon2Memory:      16 * 1024,
				Argon2Iterations:  1,
				Argon2Parallelism: 1,
			},
		},
	}
	log := logger.New("disabled", "console")

	store, err := storage.Open(cfg.Storage.DataDir, testKey)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	eventRepo, err := repository.NewEventRepository(store, cfg.Storage.RotationCap)
	require.NoError(t, err)
	configRepo := repository.NewConfigRepository(store)
	credRepo := repository.NewCredentialRepository(store)
	deviceRepo := repository.NewDeviceRepository(store)

	credSvc := NewCredentialService(credRepo, eventRepo, cfg, log)
	auditSvc := NewAuditService(eventRepo, credSvc, cfg, log)
	protectionSvc := NewProtectionService(configRepo, credSvc, auditSvc, cfg, log)
	trustSvc := NewTrustService(deviceRepo, auditSvc, log)

	return &testEnv{
		cfg:           cfg,
		store:         store,
		eventRepo:     eventRepo,
		deviceRepo:    deviceRepo,
		credSvc:       credSvc,
		auditSvc:      auditSvc,
		protectionSvc: protectionSvc,
		trustSvc:      trustSvc,
	}
}

// setPassword provisions the master password directly.
func (e *testEnv) setPassword(t *testing.T, password string) {
	t.Helper()
	require.NoError(t, e.credSvc.SetPassword(context.Background(), "", password))
}

// eventsOfType collects the recorded events of one type.
func (e *testEnv) eventsOfType(t *testing.T, eventType model.EventType) []model.SecurityEvent {
	t.Helper()
	events, err := e.auditSvc.GetEventsByType(context.Background(), eventType)
	require.NoError(t, err)
	return events
}

// fakeController records dispatched device actions.
type fakeController struct {
	locks   int
	wipes   int
	locates int
	alarms  int
	fix     model.LocationFix
	err     error
}

func (c *fakeController) Lock(ctx context.Context) error {
	c.locks++
	return c.err
}

func (c *fakeController) Wipe(ctx context.Context) error {
	c.wipes++
	return c.err
}

func (c *fakeController) Locate(ctx context.Context) (model.LocationFix, error) {
	c.locates++
	if c.err != nil {
		return model.LocationFix{}, c.err
	}
	return c.fix, nil
}

func (c *fakeController) Alarm(ctx context.Context) error {
	c.alarms++
	return c.err
}

func (c *fakeController) BatteryLevel(ctx context.Context) (int, error) {
	return 80, nil
}

// fakeSender records outbound texts.
type fakeSender struct {
	sent []sentText
	err  error
}

type sentText struct {
	address string
	text    string
}

func (s *fakeSender) Send(ctx context.Context, address, text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentText{address: address, text: text})
	return nil
}

var errUnavailable = errors.New("collaborator unavailable")

// fixedTime is a reference instant used where tests need stable timestamps.
var fixedTime = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
