package crypto

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
)

// Identity is a collaborator's X25519 keypair: Public is safe to publish
// as a recipient line in .tether-collab.toml, Private never leaves the
// owning machine.
type Identity struct {
	Public  string
	Private string
}

// GenerateAsymmetricIdentity creates a new collaborator identity for
// secret-sharing enrollment.
func GenerateAsymmetricIdentity() (*Identity, error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}
	return &Identity{Public: id.Recipient().String(), Private: id.String()}, nil
}

// EncryptToRecipients seals plaintext so that any of the given public
// recipient strings can decrypt it; the encoded recipient set becomes
// the collaborator secret's ciphertext blob. Re-running this with an
// updated recipients list is how membership changes are applied: every
// secret is re-encrypted, never incrementally re-keyed.
func EncryptToRecipients(recipients []string, plaintext []byte) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients provided")
	}
	parsed := make([]age.Recipient, 0, len(recipients))
	for _, r := range recipients {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		rec, err := age.ParseX25519Recipient(r)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient %q: %w", r, err)
		}
		parsed = append(parsed, rec)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("no usable recipients after parsing")
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, parsed...)
	if err != nil {
		return nil, fmt.Errorf("open age writer: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("write plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close age writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DecryptFromRecipients opens a blob produced by EncryptToRecipients using
// the caller's private identity string. ErrNotRecipient-shaped failures
// from age surface unchanged so callers can distinguish "wrong key" from
// "corrupt ciphertext".
func DecryptFromRecipients(privateIdentity string, blob []byte) ([]byte, error) {
	id, err := age.ParseX25519Identity(strings.TrimSpace(privateIdentity))
	if err != nil {
		return nil, fmt.Errorf("parse identity: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(blob), id)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read plaintext: %w", err)
	}
	return plaintext, nil
}
