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

// CredentialRepository handles master credential persistence
type CredentialRepository struct {
	col *storage.Collection

	mu sync.RWMutex
}

// NewCredentialRepository creates a new CredentialRepository
func NewCredentialRepository(store *storage.Store) *CredentialRepository {
	return &CredentialRepository{col: store.Collection("credential")}
}

// Get returns the stored credential, or ErrNotFound when no master
// password has been set.
func (r *CredentialRepository) Get(ctx context.Context) (*model.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var cred model.Credential
	if err := r.col.Load(&cred); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return &cred, nil
}

// Save replaces the stored credential.
func (r *CredentialRepository) Save(ctx context.Context, cred *model.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.col.Save(cred); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}
