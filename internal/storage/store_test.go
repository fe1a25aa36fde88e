package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type document struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStoreSaveLoad(t *testing.T) {
	store, err := Open(t.TempDir(), testKey)
	require.NoError(t, err)
	defer store.Close()

	col := store.Collection("docs")
	saved := document{Name: "first", Count: 3}
	require.NoError(t, col.Save(saved))

	var loaded document
	require.NoError(t, col.Load(&loaded))
	assert.Equal(t, saved, loaded)
}

func TestStoreLoadMissingCollection(t *testing.T) {
	store, err := Open(t.TempDir(), testKey)
	require.NoError(t, err)
	defer store.Close()

	var loaded document
	err = store.Collection("never_saved").Load(&loaded)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStoreOpenRejectsBadKey(t *testing.T) {
	_, err := Open(t.TempDir(), []byte("short"))
	assert.Error(t, err)
}

func TestStoreLoadWithWrongKey(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir, testKey)
	require.NoError(t, err)
	require.NoError(t, store.Collection("docs").Save(document{Name: "sealed"}))
	store.Close()

	otherKey := []byte("fedcba9876543210fedcba9876543210")
	other, err := Open(dir, otherKey)
	require.NoError(t, err)
	defer other.Close()

	var loaded document
	err = other.Collection("docs").Load(&loaded)
	assert.ErrorIs(t, err, ErrBadSeal)
}

func TestStoreDetectsTampering(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir, testKey)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Collection("docs").Save(document{Name: "sealed"}))

	path := filepath.Join(dir, "docs.sealed")
	sealed, err := os.ReadFile(path)
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, sealed, 0600))

	var loaded document
	err = store.Collection("docs").Load(&loaded)
	assert.ErrorIs(t, err, ErrBadSeal)
}

func TestStoreFileIsNotPlaintext(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir, testKey)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Collection("docs").Save(document{Name: "visible-secret"}))

	raw, err := os.ReadFile(filepath.Join(dir, "docs.sealed"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "visible-secret")
}

func TestStoreClosedOperationsFail(t *testing.T) {
	store, err := Open(t.TempDir(), testKey)
	require.NoError(t, err)

	col := store.Collection("docs")
	require.NoError(t, col.Save(document{Name: "x"}))
	store.Close()

	var loaded document
	assert.ErrorIs(t, col.Load(&loaded), ErrNotInitialized)
	assert.ErrorIs(t, col.Save(document{}), ErrNotInitialized)
	assert.ErrorIs(t, col.Delete(), ErrNotInitialized)
}

func TestStoreDeleteMissingCollection(t *testing.T) {
	store, err := Open(t.TempDir(), testKey)
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Collection("never_saved").Delete())
}

func TestStoreDeleteThenLoad(t *testing.T) {
	store, err := Open(t.TempDir(), testKey)
	require.NoError(t, err)
	defer store.Close()

	col := store.Collection("docs")
	require.NoError(t, col.Save(document{Name: "gone"}))
	require.NoError(t, col.Delete())

	var loaded document
	err = col.Load(&loaded)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStorageErrorUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := storageErr("save docs", inner)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "save docs")
}
