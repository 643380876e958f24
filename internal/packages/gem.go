package packages

import (
	"context"
	"fmt"
	"strings"
)

// Gem manages `gem install`/`gem list --local`.
type Gem struct{ cliAdapter }

func NewGem() *Gem {
	return &Gem{cliAdapter{
		key:              "gem",
		binary:           "gem",
		listArgs:         []string{"list", "--local"},
		installArgs:      func(name string) []string { return []string{"install", name} },
		uninstallArgs:    func(name string) []string { return []string{"uninstall", "-x", name} },
		updateAllArgs:    []string{"update"},
		manifestFilename: "gems.txt",
	}}
}

// ListInstalled overrides cliAdapter's plain-line split because `gem
// list` output is "name (version, version)" per line, not a bare name.
func (g *Gem) ListInstalled(ctx context.Context) ([]string, error) {
	out, err := runCLI(ctx, g.binary, g.listArgs...)
	if err != nil {
		return nil, fmt.Errorf("gem: list installed: %w", err)
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "***") {
			continue
		}
		name, _, _ := strings.Cut(line, " ")
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (g *Gem) ExportManifest(names []string) (string, error) {
	return strings.Join(names, "\n") + "\n", nil
}

func (g *Gem) ImportManifest(text string) ([]string, error) {
	return splitNonEmptyLines(text), nil
}

// UV manages `uv tool install`/`uv tool list` for globally installed
// Python CLI tools.
type UV struct{ cliAdapter }

func NewUV() *UV {
	return &UV{cliAdapter{
		key:              "uv",
		binary:           "uv",
		listArgs:         []string{"tool", "list"},
		installArgs:      func(name string) []string { return []string{"tool", "install", name} },
		uninstallArgs:    func(name string) []string { return []string{"tool", "uninstall", name} },
		updateAllArgs:    []string{"tool", "upgrade", "--all"},
		manifestFilename: "uv.txt",
	}}
}

// ListInstalled overrides cliAdapter's plain-line split because `uv tool
// list` output is "name v1.2.3" with indented entry points below it.
func (u *UV) ListInstalled(ctx context.Context) ([]string, error) {
	out, err := runCLI(ctx, u.binary, u.listArgs...)
	if err != nil {
		return nil, fmt.Errorf("uv: list installed: %w", err)
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if line == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimSpace(line), " ")
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (u *UV) ExportManifest(names []string) (string, error) {
	return strings.Join(names, "\n") + "\n", nil
}

func (u *UV) ImportManifest(text string) ([]string, error) {
	return splitNonEmptyLines(text), nil
}
