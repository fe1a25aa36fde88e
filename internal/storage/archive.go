package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
)

// ErrBadArchive is returned when an exported artifact cannot be opened
// with the supplied password or is structurally malformed.
var ErrBadArchive = errors.New("cannot open archive (wrong password or corrupt artifact)")

const archiveSaltLength = 16

// deriveArchiveKey stretches the export password into a 32-byte key.
func deriveArchiveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, 3, 64*1024, 4, 32)
}

// SealArchive encrypts an export document under a password-derived key
// and encodes it as a single base64 blob: base64(salt || nonce || ciphertext).
func SealArchive(plaintext []byte, password string) (string, error) {
	salt := make([]byte, archiveSaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", storageErr("seal archive", err)
	}

	block, err := aes.NewCipher(deriveArchiveKey(password, salt))
	if err != nil {
		return "", storageErr("seal archive", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return "", storageErr("seal archive", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", storageErr("seal archive", err)
	}

	sealed := append(salt, aead.Seal(nonce, nonce, plaintext, nil)...)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenArchive decodes and decrypts an artifact produced by SealArchive.
// Any structural or authentication failure returns ErrBadArchive.
func OpenArchive(artifact string, password string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(artifact)
	if err != nil {
		return nil, ErrBadArchive
	}
	if len(sealed) < archiveSaltLength {
		return nil, ErrBadArchive
	}
	salt, rest := sealed[:archiveSaltLength], sealed[archiveSaltLength:]

	block, err := aes.NewCipher(deriveArchiveKey(password, salt))
	if err != nil {
		return nil, ErrBadArchive
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrBadArchive
	}
	if len(rest) < aead.NonceSize() {
		return nil, ErrBadArchive
	}
	nonce, ciphertext := rest[:aead.NonceSize()], rest[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrBadArchive
	}
	return plaintext, nil
}
