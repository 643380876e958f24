// Package pathspec centralizes the path-safety rules every input path must
// pass before it is joined to the home directory or the shared repository
// root, per the data model's path validation rules.
package pathspec

import (
	"fmt"
	"strings"
)

// ReservedNames may not be used as a profile, team, or collab identifier.
var ReservedNames = map[string]bool{
	"shared":    true,
	"dotfiles":  true,
	"manifests": true,
	"configs":   true,
	"projects":  true,
	"profiles":  true,
}

// ValidateDotfilePath validates a dotfile path from config: a leading "~/"
// is stripped (the tilde denotes home), then the remainder must be
// non-empty, relative, and free of ".." components.
func ValidateDotfilePath(p string) (string, error) {
	p = strings.TrimPrefix(p, "~/")
	if p == "" {
		return "", fmt.Errorf("dotfile path is empty")
	}
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("dotfile path %q must not be absolute", p)
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", fmt.Errorf("dotfile path %q contains a traversal component", p)
		}
	}
	return p, nil
}

// ValidateIdentifier validates a profile/team/collab name: non-empty, no
// path separators, no "..", not a reserved name, and not dot-leading.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier is empty")
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("identifier %q must not begin with a dot", name)
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("identifier %q contains illegal path characters", name)
	}
	if ReservedNames[strings.ToLower(name)] {
		return fmt.Errorf("identifier %q is reserved", name)
	}
	return nil
}

// DotfileBlobName maps a validated dotfile path to its shared-repo blob
// filename: the leading dot is dropped and remaining separators become
// underscores, e.g. ".zshrc" -> "zshrc.enc", ".config/foo" -> "config_foo.enc".
func DotfileBlobName(relPath string) string {
	name := strings.TrimPrefix(relPath, ".")
	name = strings.ReplaceAll(name, "/", "_")
	return name + ".enc"
}
