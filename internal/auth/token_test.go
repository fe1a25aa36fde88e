package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phonesentry/phonesentry/internal/config"
)

func testTokenConfig() config.TokenConfig {
	return config.TokenConfig{
		AccessTokenTTL: 15 * time.Minute,
		Issuer:         "phonesentry",
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc, err := NewTokenService(testTokenConfig())
	require.NoError(t, err)

	token, expiry, err := svc.GenerateToken()
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiry, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, "phonesentry", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenFromOtherKey(t *testing.T) {
	svc, err := NewTokenService(testTokenConfig())
	require.NoError(t, err)
	other, err := NewTokenService(testTokenConfig())
	require.NoError(t, err)

	token, _, err := other.GenerateToken()
	require.NoError(t, err)

	// Signing keys are per process instance
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	cfg := testTokenConfig()
	cfg.AccessTokenTTL = -time.Minute
	svc, err := NewTokenService(cfg)
	require.NoError(t, err)

	token, _, err := svc.GenerateToken()
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenWrongIssuer(t *testing.T) {
	cfg := testTokenConfig()
	cfg.Issuer = "someone-else"
	issuer, err := NewTokenService(cfg)
	require.NoError(t, err)

	token, _, err := issuer.GenerateToken()
	require.NoError(t, err)

	svc, err := NewTokenService(testTokenConfig())
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc, err := NewTokenService(testTokenConfig())
	require.NoError(t, err)

	for _, tokenString := range []string{"", "not-a-jwt", "a.b.c", "..."} {
		_, err := svc.ValidateToken(tokenString)
		assert.Error(t, err, "token %q should not validate", tokenString)
	}
}
