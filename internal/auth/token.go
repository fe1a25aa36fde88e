package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phonesentry/phonesentry/internal/config"
)

// TokenService issues and validates the short-lived admin API tokens.
// The signing key is an ephemeral per-process Ed25519 key: admin
// sessions do not survive an agent restart, which is the desired
// behavior for a device-protection daemon.
type TokenService struct {
	cfg        config.TokenConfig
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
}

// TokenClaims represents the claims in an admin access token.
type TokenClaims struct {
	jwt.RegisteredClaims
}

// NewTokenService creates a new TokenService with a fresh signing key.
func NewTokenService(cfg config.TokenConfig) (*TokenService, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return &TokenService{
		cfg:        cfg,
		privateKey: privateKey,
		publicKey:  publicKey,
	}, nil
}

// GenerateToken creates a signed admin access token.
func (s *TokenService) GenerateToken() (string, time.Time, error) {
	now := time.Now()
	expiry := now.Add(s.cfg.AccessTokenTTL)

	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   "admin",
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiry, nil
}

// ValidateToken parses and verifies an admin access token.
func (s *TokenService) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	},
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
