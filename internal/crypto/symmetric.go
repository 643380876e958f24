// Package crypto implements the two encryption regimes the sync engine
// uses: AES-256-GCM for the personal symmetric key that protects
// dotfiles and package manifests, and X25519 multi-recipient envelopes
// (via age) for secrets shared with collaborators.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

const (
	keySize   = 32 // AES-256
	nonceSize = 12 // GCM standard nonce length

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// GenerateSymmetricKey returns a fresh random 256-bit key for personal
// dotfile/package encryption.
func GenerateSymmetricKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate symmetric key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext under key with AES-256-GCM, returning the
// random nonce prefixed to the ciphertext.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

// Decrypt opens a nonce-prefixed AES-256-GCM ciphertext produced by Encrypt.
func Decrypt(key, blob []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(blob) < nonceSize {
		return nil, fmt.Errorf("ciphertext shorter than nonce")
	}
	nonce, sealed := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// WrapKey encrypts the personal symmetric key under a key-encryption-key
// derived from passphrase via scrypt, so the machine unlock step never
// stores the raw key at rest. salt should be fresh per wrap and is stored
// alongside the wrapped key (it is not secret).
func WrapKey(passphrase string, salt, plainKey []byte) ([]byte, error) {
	kek, err := deriveKEK(passphrase, salt)
	if err != nil {
		return nil, err
	}
	return Encrypt(kek, plainKey)
}

// UnwrapKey reverses WrapKey.
func UnwrapKey(passphrase string, salt, wrapped []byte) ([]byte, error) {
	kek, err := deriveKEK(passphrase, salt)
	if err != nil {
		return nil, err
	}
	return Decrypt(kek, wrapped)
}

// NewSalt returns a fresh 16-byte scrypt salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

func deriveKEK(passphrase string, salt []byte) ([]byte, error) {
	kek, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key-encryption-key: %w", err)
	}
	return kek, nil
}
