package packages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// NPMGlobal manages `npm install -g`/`npm ls -g`.
type NPMGlobal struct{ cliAdapter }

func NewNPMGlobal() *NPMGlobal {
	return &NPMGlobal{cliAdapter{
		key:              "npm_global",
		binary:           "npm",
		installArgs:      func(name string) []string { return []string{"install", "-g", name} },
		uninstallArgs:    func(name string) []string { return []string{"uninstall", "-g", name} },
		updateAllArgs:    []string{"update", "-g"},
		manifestFilename: "npm.txt",
	}}
}

// ListInstalled overrides cliAdapter's plain-line listing because `npm
// ls -g --json` is the only reliable way to separate package names from
// npm's tree-drawing output.
func (n *NPMGlobal) ListInstalled(ctx context.Context) ([]string, error) {
	return listJSONDependencies(ctx, n.binary, []string{"ls", "-g", "--json", "--depth=0"})
}

func (n *NPMGlobal) ExportManifest(names []string) (string, error) {
	return strings.Join(names, "\n") + "\n", nil
}

func (n *NPMGlobal) ImportManifest(text string) ([]string, error) {
	return splitNonEmptyLines(text), nil
}

// PNPMGlobal manages `pnpm add -g`/`pnpm ls -g`.
type PNPMGlobal struct{ cliAdapter }

func NewPNPMGlobal() *PNPMGlobal {
	return &PNPMGlobal{cliAdapter{
		key:              "pnpm_global",
		binary:           "pnpm",
		installArgs:      func(name string) []string { return []string{"add", "-g", name} },
		uninstallArgs:    func(name string) []string { return []string{"remove", "-g", name} },
		updateAllArgs:    []string{"update", "-g", "--latest"},
		manifestFilename: "pnpm.txt",
	}}
}

func (p *PNPMGlobal) ListInstalled(ctx context.Context) ([]string, error) {
	return listJSONDependencies(ctx, p.binary, []string{"ls", "-g", "--json", "--depth=0"})
}

func (p *PNPMGlobal) ExportManifest(names []string) (string, error) {
	return strings.Join(names, "\n") + "\n", nil
}

func (p *PNPMGlobal) ImportManifest(text string) ([]string, error) {
	return splitNonEmptyLines(text), nil
}

// BunGlobal manages `bun add -g`/`bun pm ls -g`.
type BunGlobal struct{ cliAdapter }

func NewBunGlobal() *BunGlobal {
	return &BunGlobal{cliAdapter{
		key:              "bun_global",
		binary:           "bun",
		listArgs:         []string{"pm", "ls", "-g"},
		installArgs:      func(name string) []string { return []string{"add", "-g", name} },
		uninstallArgs:    func(name string) []string { return []string{"remove", "-g", name} },
		updateAllArgs:    []string{"update", "-g"},
		manifestFilename: "bun.txt",
	}}
}

func (b *BunGlobal) ExportManifest(names []string) (string, error) {
	return strings.Join(names, "\n") + "\n", nil
}

func (b *BunGlobal) ImportManifest(text string) ([]string, error) {
	return splitNonEmptyLines(text), nil
}

// listJSONDependencies runs a manager CLI command that emits a single
// JSON object with a top-level "dependencies" map and returns its keys;
// npm and pnpm both follow this shape for `ls -g --json --depth=0`.
func listJSONDependencies(ctx context.Context, binary string, args []string) ([]string, error) {
	out, err := runCLI(ctx, binary, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: list installed: %w", binary, err)
	}
	var parsed struct {
		Dependencies map[string]json.RawMessage `json:"dependencies"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return nil, fmt.Errorf("%s: parse list output: %w", binary, err)
	}
	names := make([]string, 0, len(parsed.Dependencies))
	for name := range parsed.Dependencies {
		names = append(names, name)
	}
	return names, nil
}
