package collab

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// manifestVersion is the only schema version this build writes.
const manifestVersion = 1

// Manifest is the parsed form of a collab repo's .tether-collab.toml:
// which source projects gate membership, and who refresh last found
// authorized. The physical recipient set lives in recipients/*.pub
// instead, per §4.4's "drift is reported, not deleted" rule — Authorized
// here is a live, disposable projection, not the source of truth.
type Manifest struct {
	Version    int      `toml:"version"`
	CreatedBy  string   `toml:"created_by"`
	Projects   []string `toml:"projects"`
	Authorized []string `toml:"authorized"`
}

// LoadManifest reads a collab repo's .tether-collab.toml. A missing file
// (a brand new collab repo) returns a zero-value manifest, not an error.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path built from Layout.CollabManifestPath
	if os.IsNotExist(err) {
		return &Manifest{Version: manifestVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read collab manifest: %w", err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse collab manifest: %w", err)
	}
	return &m, nil
}

// SaveManifest writes m to path as TOML.
func SaveManifest(path string, m *Manifest) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal collab manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create collab repo dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadRecipients scans recipientsDir for *.pub files and returns one
// Recipient per file, keyed by filename (the username, per
// Layout.RecipientKeyPath's naming convention).
func LoadRecipients(recipientsDir string) ([]Recipient, error) {
	entries, err := os.ReadDir(recipientsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read recipients dir: %w", err)
	}

	var recipients []Recipient
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pub") {
			continue
		}
		username := strings.TrimSuffix(entry.Name(), ".pub")
		data, err := os.ReadFile(filepath.Join(recipientsDir, entry.Name())) // #nosec G304 -- filename came from this same ReadDir call
		if err != nil {
			return nil, fmt.Errorf("read recipient key %q: %w", entry.Name(), err)
		}
		recipients = append(recipients, Recipient{
			Username:  username,
			PublicKey: strings.TrimSpace(string(data)),
		})
	}
	return recipients, nil
}

// SaveRecipientKey writes username's public key to its recipients/*.pub
// file, enrolling them (or updating their key) in the physical set.
func SaveRecipientKey(recipientsDir, username, publicKey string) error {
	if err := os.MkdirAll(recipientsDir, 0o755); err != nil {
		return fmt.Errorf("create recipients dir: %w", err)
	}
	path := filepath.Join(recipientsDir, username+".pub")
	return os.WriteFile(path, []byte(publicKey+"\n"), 0o644)
}
