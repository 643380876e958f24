package crypto

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/tether-sh/tether/pkg/safeio"
)

// MachineIdentity is the per-machine record persisted under
// ~/.tether/identity, holding the wrapped personal key and this
// machine's stable ID for MachineState bookkeeping.
type MachineIdentity struct {
	MachineID    string `toml:"machine_id"`
	Salt         string `toml:"salt"`          // base64
	WrappedKey   string `toml:"wrapped_key"`   // base64
	WrappedNonce string `toml:"wrapped_nonce"` // unused, kept for forward compatibility
}

// NewMachineIdentity generates a fresh machine ID and wraps a fresh
// symmetric key under passphrase, for first-run `tether init`.
func NewMachineIdentity(passphrase string) (*MachineIdentity, []byte, error) {
	key, err := GenerateSymmetricKey()
	if err != nil {
		return nil, nil, err
	}
	salt, err := NewSalt()
	if err != nil {
		return nil, nil, err
	}
	wrapped, err := WrapKey(passphrase, salt, key)
	if err != nil {
		return nil, nil, err
	}
	return &MachineIdentity{
		MachineID:  uuid.NewString(),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		WrappedKey: base64.StdEncoding.EncodeToString(wrapped),
	}, key, nil
}

// Unlock recovers the plaintext personal symmetric key from a persisted
// MachineIdentity and the unlock passphrase.
func (m *MachineIdentity) Unlock(passphrase string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(m.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	wrapped, err := base64.StdEncoding.DecodeString(m.WrappedKey)
	if err != nil {
		return nil, fmt.Errorf("decode wrapped key: %w", err)
	}
	key, err := UnwrapKey(passphrase, salt, wrapped)
	if err != nil {
		return nil, fmt.Errorf("unlock: wrong passphrase or corrupted identity: %w", err)
	}
	return key, nil
}

// identityFilename is the fixed local file the passphrase-wrapped
// symmetric key is persisted to, distinct from the shared-repo copy
// that propagates it across machines.
const identityFilename = "identity"

// LoadMachineIdentity reads <tetherHome>/identity.
func LoadMachineIdentity(tetherHome string) (*MachineIdentity, error) {
	data, err := os.ReadFile(filepath.Join(tetherHome, identityFilename)) // #nosec G304 -- fixed path under the tether home
	if err != nil {
		return nil, fmt.Errorf("read machine identity: %w", err)
	}
	var id MachineIdentity
	if err := toml.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("parse machine identity: %w", err)
	}
	return &id, nil
}

// SaveMachineIdentity writes m to <tetherHome>/identity, mode 0600 since
// it carries the wrapped symmetric key.
func SaveMachineIdentity(tetherHome string, m *MachineIdentity) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal machine identity: %w", err)
	}
	return safeio.WriteSecureFile(filepath.Join(tetherHome, identityFilename), data)
}

// asymmetricIdentityFile and asymmetricPublicFile are the two files an
// asymmetric collab identity splits across: the private half
// passphrase-wrapped, the public half plaintext (it is meant to be
// published as a recipient line).
const (
	asymmetricIdentityFile = "identity.age"
	asymmetricPublicFile   = "identity.pub"
)

// SaveAsymmetricIdentity wraps id.Private under passphrase and writes it
// to identity.age, and writes id.Public unencrypted to identity.pub.
func SaveAsymmetricIdentity(tetherHome string, id *Identity, passphrase string) error {
	salt, err := NewSalt()
	if err != nil {
		return err
	}
	wrapped, err := WrapKey(passphrase, salt, []byte(id.Private))
	if err != nil {
		return fmt.Errorf("wrap asymmetric identity: %w", err)
	}
	blob := append(salt, wrapped...)
	if err := safeio.WriteSecureFile(filepath.Join(tetherHome, asymmetricIdentityFile), blob); err != nil {
		return fmt.Errorf("write identity.age: %w", err)
	}
	if err := safeio.WriteFilePreservePerms(filepath.Join(tetherHome, asymmetricPublicFile), []byte(id.Public)); err != nil {
		return fmt.Errorf("write identity.pub: %w", err)
	}
	return nil
}

// LoadAsymmetricIdentity reverses SaveAsymmetricIdentity.
func LoadAsymmetricIdentity(tetherHome, passphrase string) (*Identity, error) {
	blob, err := os.ReadFile(filepath.Join(tetherHome, asymmetricIdentityFile)) // #nosec G304 -- fixed path under the tether home
	if err != nil {
		return nil, fmt.Errorf("read identity.age: %w", err)
	}
	if len(blob) < 16 {
		return nil, fmt.Errorf("identity.age is truncated")
	}
	salt, wrapped := blob[:16], blob[16:]
	private, err := UnwrapKey(passphrase, salt, wrapped)
	if err != nil {
		return nil, fmt.Errorf("unwrap asymmetric identity: wrong passphrase or corrupted file: %w", err)
	}
	public, err := os.ReadFile(filepath.Join(tetherHome, asymmetricPublicFile)) // #nosec G304 -- fixed path under the tether home
	if err != nil {
		return nil, fmt.Errorf("read identity.pub: %w", err)
	}
	return &Identity{Public: string(public), Private: string(private)}, nil
}
