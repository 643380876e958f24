package gitstore

import (
	"path/filepath"
	"strings"

	"github.com/tether-sh/tether/pkg/pathspec"
)

// Layout centralizes every path built inside a cloned content-store
// working tree, so no caller ever joins a path component by hand.
type Layout struct {
	root string
}

// NewLayout binds a Layout to a store's working directory.
func NewLayout(root string) *Layout {
	return &Layout{root: root}
}

// DotfileBlob returns the path to the encrypted blob for a validated
// dotfile relative path, under dotfiles/.
func (l *Layout) DotfileBlob(relPath string) string {
	return filepath.Join(l.root, "dotfiles", pathspec.DotfileBlobName(relPath))
}

// SelfConfigBlob returns the fixed path the tool's own configuration is
// always tracked at, regardless of user configuration.
func (l *Layout) SelfConfigBlob() string {
	return filepath.Join(l.root, "dotfiles", "tether", "config.toml.enc")
}

// ConfigBlob returns the path to a tracked configs/ directory entry,
// relHomePath being the path relative to $HOME (e.g. ".config/foo/bar").
func (l *Layout) ConfigBlob(relHomePath string) string {
	return filepath.Join(l.root, "configs", relHomePath+".enc")
}

// ManifestPath returns the path to a package manager's exported
// manifest, using that manager's own canonical filename (e.g.
// "Brewfile", "npm.txt") rather than a generic extension.
func (l *Layout) ManifestPath(manifestFilename string) string {
	return filepath.Join(l.root, "manifests", manifestFilename)
}

// ProjectConfigPath returns the path to a tracked project's synced
// config tree, keyed by its normalized source URL.
func (l *Layout) ProjectConfigPath(normalizedURL string) string {
	return filepath.Join(l.root, "projects", normalizedURL)
}

// MachineStatePath returns the per-machine state file path.
func (l *Layout) MachineStatePath(machineID string) string {
	return filepath.Join(l.root, "machines", machineID+".json")
}

// CollabManifestPath returns the path to the collaborator recipient/secret manifest.
func (l *Layout) CollabManifestPath() string {
	return filepath.Join(l.root, ".tether-collab.toml")
}

// RecipientKeyPath returns the path to one collaborator's public key file
// under recipients/, the collab repo's physical recipient set.
func (l *Layout) RecipientKeyPath(username string) string {
	return filepath.Join(l.root, "recipients", username+".pub")
}

// RecipientsDir returns the directory holding every recipients/*.pub file.
func (l *Layout) RecipientsDir() string {
	return filepath.Join(l.root, "recipients")
}

// ProfileDir returns the root under which a named profile's synced content lives.
func (l *Layout) ProfileDir(profile string) string {
	return filepath.Join(l.root, "profiles", profile)
}

// NormalizeRemoteURL reduces an SSH or HTTPS git remote URL to its
// host/path form (e.g. "git@github.com:org/repo.git" or
// "https://github.com/org/repo.git" both become "github.com/org/repo"),
// the key used for projects/<normalized-url>/ and collab project lists.
func NormalizeRemoteURL(remoteURL string) string {
	u := strings.TrimSpace(remoteURL)
	u = strings.TrimSuffix(u, ".git")
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "ssh://")
	u = strings.TrimPrefix(u, "git@")
	u = strings.Replace(u, ":", "/", 1)
	return strings.TrimPrefix(u, "/")
}
