package packages

import (
	"fmt"
	"strings"
)

// HomebrewFormula manages `brew install`/`brew list --formula` packages.
type HomebrewFormula struct{ cliAdapter }

func NewHomebrewFormula() *HomebrewFormula {
	return &HomebrewFormula{cliAdapter{
		key:              "brew_formula",
		binary:           "brew",
		listArgs:         []string{"list", "--formula"},
		installArgs:      func(name string) []string { return []string{"install", name} },
		uninstallArgs:    func(name string) []string { return []string{"uninstall", name} },
		updateAllArgs:    []string{"upgrade", "--formula"},
		manifestFilename: "Brewfile",
	}}
}

// ExportManifest renders formula names in native Brewfile form.
func (h *HomebrewFormula) ExportManifest(names []string) (string, error) {
	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "brew %q\n", n)
	}
	return b.String(), nil
}

// ImportManifest parses `brew "name"` lines from a Brewfile-shaped text.
func (h *HomebrewFormula) ImportManifest(text string) ([]string, error) {
	return parseBrewfileKind(text, "brew")
}

// HomebrewCask manages `brew install --cask`/`brew list --cask` packages.
// Casks are the primary source of ErrInteractiveElevation since GUI
// installers commonly prompt for the admin password.
type HomebrewCask struct{ cliAdapter }

func NewHomebrewCask() *HomebrewCask {
	return &HomebrewCask{cliAdapter{
		key:              "brew_cask",
		binary:           "brew",
		listArgs:         []string{"list", "--cask"},
		installArgs:      func(name string) []string { return []string{"install", "--cask", name} },
		uninstallArgs:    func(name string) []string { return []string{"uninstall", "--cask", name} },
		updateAllArgs:    []string{"upgrade", "--cask"},
		manifestFilename: "Brewfile",
	}}
}

func (h *HomebrewCask) ExportManifest(names []string) (string, error) {
	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "cask %q\n", n)
	}
	return b.String(), nil
}

func (h *HomebrewCask) ImportManifest(text string) ([]string, error) {
	return parseBrewfileKind(text, "cask")
}

// HomebrewTap manages `brew tap`/`brew tap-info --installed`.
type HomebrewTap struct{ cliAdapter }

func NewHomebrewTap() *HomebrewTap {
	return &HomebrewTap{cliAdapter{
		key:              "brew_tap",
		binary:           "brew",
		listArgs:         []string{"tap"},
		installArgs:      func(name string) []string { return []string{"tap", name} },
		uninstallArgs:    func(name string) []string { return []string{"untap", name} },
		manifestFilename: "Brewfile",
	}}
}

func (h *HomebrewTap) ExportManifest(names []string) (string, error) {
	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "tap %q\n", n)
	}
	return b.String(), nil
}

func (h *HomebrewTap) ImportManifest(text string) ([]string, error) {
	return parseBrewfileKind(text, "tap")
}

// parseBrewfileKind extracts `kind "name"` entries from Brewfile text,
// ignoring entries of other kinds so the three Homebrew adapters can
// share one manifest file without clobbering each other's entries.
func parseBrewfileKind(text, kind string) ([]string, error) {
	var out []string
	prefix := kind + " \""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		name := strings.TrimPrefix(line, prefix)
		name = strings.TrimSuffix(name, "\"")
		if name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}
