package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phonesentry/phonesentry/internal/model"
)

func TestGetDefaultProtectionConfig(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	cfg, err := env.protectionSvc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultProtectionConfig(), cfg)
}

func TestGetSeedsEmergencyContactFromAgentConfig(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.cfg.Protection.EmergencyContact = "+201234567"

	cfg, err := env.protectionSvc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "+201234567", cfg.EmergencyContact)
	assert.False(t, cfg.Protected)
}

func TestUpdateClearsSeededEmergencyContact(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.setPassword(t, "correct-pw")
	env.cfg.Protection.EmergencyContact = "+15551234"

	// Persisting the all-disabled default clears the contact for good;
	// the agent-config seed applies only while nothing has been saved.
	ok, err := env.protectionSvc.Update(ctx, model.DefaultProtectionConfig(), "correct-pw")
	require.NoError(t, err)
	require.True(t, ok)

	cfg, err := env.protectionSvc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.EmergencyContact)
	assert.Equal(t, model.DefaultProtectionConfig(), cfg)
}

func TestUpdateProtectionConfig(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.setPassword(t, "correct-pw")

	want := model.ProtectionConfig{
		Protected:        true,
		StealthMode:      true,
		MonitorSimCard:   true,
		EmergencyContact: "+201234567",
	}
	ok, err := env.protectionSvc.Update(ctx, want, "correct-pw")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := env.protectionSvc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	changed := env.eventsOfType(t, model.EventConfigChanged)
	require.Len(t, changed, 1)
	assert.ElementsMatch(t, []string{"protected", "stealth_mode", "monitor_sim_card"},
		changed[0].Metadata["changed_flags"])
	assert.Equal(t, true, changed[0].Metadata["emergency_contact_changed"])
}

func TestUpdateWithWrongPassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.setPassword(t, "correct-pw")

	before, err := env.protectionSvc.Get(ctx)
	require.NoError(t, err)

	ok, err := env.protectionSvc.Update(ctx, model.ProtectionConfig{Protected: true}, "wrong-pw")
	require.NoError(t, err)
	assert.False(t, ok)

	// Configuration unchanged, rejection on record
	after, err := env.protectionSvc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	rejected := env.eventsOfType(t, model.EventConfigRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, model.RejectReasonInvalidPassword, rejected[0].Metadata["reason"])
}

func TestUpdateWithEmptyPassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.setPassword(t, "correct-pw")

	ok, err := env.protectionSvc.Update(ctx, model.ProtectionConfig{Protected: true}, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateBeforePasswordSetFailsClosed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// No master password on file: the credential check errors and the
	// update is denied
	_, err := env.protectionSvc.Update(ctx, model.ProtectionConfig{Protected: true}, "any")
	assert.ErrorIs(t, err, ErrPasswordNotSet)

	cfg, err := env.protectionSvc.Get(ctx)
	require.NoError(t, err)
	assert.False(t, cfg.Protected)
}

func TestUpdateReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.setPassword(t, "correct-pw")

	first := model.ProtectionConfig{
		Protected:     true,
		KioskMode:     true,
		BlockSettings: true,
	}
	ok, err := env.protectionSvc.Update(ctx, first, "correct-pw")
	require.NoError(t, err)
	require.True(t, ok)

	// The second update does not merge with the first
	second := model.ProtectionConfig{DailyReport: true}
	ok, err = env.protectionSvc.Update(ctx, second, "correct-pw")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := env.protectionSvc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)
	assert.False(t, got.KioskMode)
}
