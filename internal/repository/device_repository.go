package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/phonesentry/phonesentry/internal/model"
	"github.com/phonesentry/phonesentry/internal/storage"
)

// ErrCorruptDeviceSet is returned by Restore when the persisted trusted
// device collection cannot be read or parsed.
var ErrCorruptDeviceSet = errors.New("trusted device set is corrupt")

// DeviceRepository handles trusted device persistence. DeviceID is the
// identity key; the set never holds two records with the same id.
type DeviceRepository struct {
	col *storage.Collection

	mu      sync.RWMutex
	devices map[string]model.TrustedDevice
}

// NewDeviceRepository creates a new DeviceRepository with an empty
// in-memory set. Call Restore to load the persisted set.
func NewDeviceRepository(store *storage.Store) *DeviceRepository {
	return &DeviceRepository{
		col:     store.Collection("trusted_devices"),
		devices: make(map[string]model.TrustedDevice),
	}
}

// Restore loads the persisted trusted device set. A missing collection
// yields an empty set; an unreadable one returns ErrCorruptDeviceSet
// with the in-memory set reset to empty, so startup can proceed.
func (r *DeviceRepository) Restore(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = make(map[string]model.TrustedDevice)

	var persisted []model.TrustedDevice
	if err := r.col.Load(&persisted); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if errors.Is(err, storage.ErrNotInitialized) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrCorruptDeviceSet, err)
	}
	for _, d := range persisted {
		r.devices[d.DeviceID] = d
	}
	return nil
}

// IsTrusted reports whether the device id is in the trusted set.
func (r *DeviceRepository) IsTrusted(ctx context.Context, deviceID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.devices[deviceID]
	return ok, nil
}

// Get returns the trusted device with the given id, or ErrNotFound.
func (r *DeviceRepository) Get(ctx context.Context, deviceID string) (*model.TrustedDevice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

// Add inserts the device into the trusted set. Adding an id that is
// already trusted is a no-op success; added reports whether the set grew.
func (r *DeviceRepository) Add(ctx context.Context, device model.TrustedDevice) (added bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[device.DeviceID]; exists {
		return false, nil
	}
	r.devices[device.DeviceID] = device
	if err := r.flushLocked(); err != nil {
		delete(r.devices, device.DeviceID)
		return false, err
	}
	return true, nil
}

// Remove deletes the device from the trusted set, reporting whether
// something was removed.
func (r *DeviceRepository) Remove(ctx context.Context, deviceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.devices[deviceID]
	if !ok {
		return false, nil
	}
	delete(r.devices, deviceID)
	if err := r.flushLocked(); err != nil {
		r.devices[deviceID] = device
		return false, err
	}
	return true, nil
}

// Clear empties the trusted set.
func (r *DeviceRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = make(map[string]model.TrustedDevice)
	return r.flushLocked()
}

// All returns the trusted devices ordered by id.
func (r *DeviceRepository) All(ctx context.Context) ([]model.TrustedDevice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]model.TrustedDevice, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].DeviceID < devices[j].DeviceID
	})
	return devices, nil
}

func (r *DeviceRepository) flushLocked() error {
	persisted := make([]model.TrustedDevice, 0, len(r.devices))
	for _, d := range r.devices {
		persisted = append(persisted, d)
	}
	if err := r.col.Save(persisted); err != nil {
		return fmt.Errorf("failed to save trusted devices: %w", err)
	}
	return nil
}
