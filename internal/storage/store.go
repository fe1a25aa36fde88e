// Package storage provides the encrypted at-rest store backing the audit
// log, protection configuration, credential and trusted-device records.
// Each collection is a single sealed document on disk; writes go through
// a temporary file and an atomic rename so a crash leaves either the old
// or the new document, never a torn one.
package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ErrBadSeal is returned when a sealed document cannot be opened with
// the configured key (wrong key or tampered data).
var ErrBadSeal = errors.New("cannot open sealed document (wrong key or tampered data)")

const sealedExt = ".sealed"

// Store is an encrypted key-value document store. A single Store may be
// shared by several subsystems; collections are namespaced by name and
// independently lockable.
type Store struct {
	dir  string
	aead cipher.AEAD

	mu     sync.Mutex
	opened bool
}

// Open creates or opens the store rooted at dir with a 32-byte at-rest key.
func Open(dir string, key []byte) (*Store, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, storageErr("open", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, storageErr("open", err)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, storageErr("open", err)
	}
	return &Store{dir: dir, aead: aead, opened: true}, nil
}

// Close marks the store as closed; subsequent operations fail with
// ErrNotInitialized.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = false
}

// Collection returns a handle to the named collection.
func (s *Store) Collection(name string) *Collection {
	return &Collection{store: s, name: name}
}

func (s *Store) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	// Prepend the nonce so the document is self-contained
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Store) open(sealed []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrBadSeal
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrBadSeal
	}
	return plaintext, nil
}

// Collection is a named sealed document within a Store.
type Collection struct {
	store *Store
	name  string
}

func (c *Collection) path() string {
	return filepath.Join(c.store.dir, c.name+sealedExt)
}

// Load decrypts the collection document into v. It returns
// os.ErrNotExist (wrapped) when the collection has never been saved and
// ErrBadSeal when the document cannot be opened with the store key.
func (c *Collection) Load(v interface{}) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if !c.store.opened {
		return ErrNotInitialized
	}

	sealed, err := os.ReadFile(c.path())
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("collection %s: %w", c.name, os.ErrNotExist)
		}
		return storageErr("load "+c.name, err)
	}

	plaintext, err := c.store.open(sealed)
	if err != nil {
		return storageErr("load "+c.name, err)
	}
	if err := json.Unmarshal(plaintext, v); err != nil {
		return storageErr("load "+c.name, err)
	}
	return nil
}

// Save seals v and atomically replaces the collection document.
func (c *Collection) Save(v interface{}) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if !c.store.opened {
		return ErrNotInitialized
	}

	plaintext, err := json.Marshal(v)
	if err != nil {
		return storageErr("save "+c.name, err)
	}
	sealed, err := c.store.seal(plaintext)
	if err != nil {
		return storageErr("save "+c.name, err)
	}

	// Write to a temporary file first, then rename. On a crash the
	// collection is either the old document or the new one.
	tempPath := c.path() + ".tmp"
	if err := os.WriteFile(tempPath, sealed, 0600); err != nil {
		return storageErr("save "+c.name, err)
	}
	if err := os.Rename(tempPath, c.path()); err != nil {
		return storageErr("save "+c.name, err)
	}
	return nil
}

// Delete removes the collection document. Deleting a collection that
// was never saved is not an error.
func (c *Collection) Delete() error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if !c.store.opened {
		return ErrNotInitialized
	}
	if err := os.Remove(c.path()); err != nil && !os.IsNotExist(err) {
		return storageErr("delete "+c.name, err)
	}
	return nil
}
