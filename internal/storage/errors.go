package storage

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned when a store operation is attempted
// before Open has been called.
var ErrNotInitialized = errors.New("storage is not initialized")

// StorageError wraps an I/O or encryption-layer failure. Callers decide
// whether to retry; the store never retries internally.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
