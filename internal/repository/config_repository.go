package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/phonesentry/phonesentry/internal/model"
	"github.com/phonesentry/phonesentry/internal/storage"
)

// ConfigRepository handles protection configuration persistence
type ConfigRepository struct {
	col *storage.Collection

	mu sync.RWMutex
}

// NewConfigRepository creates a new ConfigRepository
func NewConfigRepository(store *storage.Store) *ConfigRepository {
	return &ConfigRepository{col: store.Collection("protection_config")}
}

// Load returns the persisted configuration, or ErrNotFound when none
// has been saved yet. A deliberately saved all-disabled configuration
// loads as itself; only a store with no record at all is ErrNotFound.
func (r *ConfigRepository) Load(ctx context.Context) (model.ProtectionConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var cfg model.ProtectionConfig
	if err := r.col.Load(&cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.ProtectionConfig{}, ErrNotFound
		}
		return model.ProtectionConfig{}, fmt.Errorf("failed to load protection config: %w", err)
	}
	return cfg, nil
}

// Save replaces the persisted configuration wholesale.
func (r *ConfigRepository) Save(ctx context.Context, cfg model.ProtectionConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.col.Save(cfg); err != nil {
		return fmt.Errorf("failed to save protection config: %w", err)
	}
	return nil
}
