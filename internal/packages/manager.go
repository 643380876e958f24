// Package packages implements the uniform adapter interface over each
// supported external package manager, plus the set arithmetic (union,
// missing) the reconciliation engine's manifest-export and import steps
// depend on.
package packages

import "context"

// ErrInteractiveElevation is returned by Install/ImportManifest when a
// package (typically a Homebrew cask) failed because it needs interactive
// privilege elevation that agent mode cannot supply. The caller defers
// the package into SyncState.DeferredCasks rather than treating this as
// a hard failure.
var ErrInteractiveElevation = errInteractiveElevation{}

type errInteractiveElevation struct{}

func (errInteractiveElevation) Error() string {
	return "package requires interactive elevation and cannot be installed in agent mode"
}

// Manager is the uniform adapter every supported package manager
// implements: list/install/uninstall/export-manifest/import-manifest/
// update-all.
type Manager interface {
	// Key is the manager-key used in SyncState/MachineState maps, e.g. "brew_formula".
	Key() string

	// Available reports whether the underlying CLI is installed on this machine.
	Available(ctx context.Context) bool

	// ListInstalled returns the names currently installed, in the manager's own ordering.
	ListInstalled(ctx context.Context) ([]string, error)

	// Install installs name. Returns ErrInteractiveElevation if the
	// manager could not complete the install without a password prompt.
	Install(ctx context.Context, name string) error

	// Uninstall removes name.
	Uninstall(ctx context.Context, name string) error

	// UpdateAll upgrades every package this manager has installed to its
	// latest available version. Managers with no such concept (taps) treat
	// this as a no-op rather than an error.
	UpdateAll(ctx context.Context) error

	// ExportManifest renders names into this manager's canonical manifest text.
	ExportManifest(names []string) (string, error)

	// ImportManifest parses manifest text into a list of package names.
	ImportManifest(text string) ([]string, error)

	// ManifestFilename is the file this manager's union manifest is written to
	// under manifests/ in the content store (e.g. "Brewfile", "npm.txt").
	ManifestFilename() string
}

// Registry maps manager keys to their adapters, in the fixed iteration
// order managers were registered (Homebrew formula/cask/tap, then the
// language package managers, then winget), matching spec §4.3's listed
// manager set.
type Registry struct {
	order    []string
	managers map[string]Manager
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{managers: map[string]Manager{}}
}

// Register adds m to the registry, keyed by m.Key().
func (r *Registry) Register(m Manager) {
	if _, exists := r.managers[m.Key()]; !exists {
		r.order = append(r.order, m.Key())
	}
	r.managers[m.Key()] = m
}

// Get returns the manager registered under key, if any.
func (r *Registry) Get(key string) (Manager, bool) {
	m, ok := r.managers[key]
	return m, ok
}

// All returns every registered manager in registration order.
func (r *Registry) All() []Manager {
	out := make([]Manager, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.managers[key])
	}
	return out
}

// DefaultRegistry wires every built-in adapter, matching the manager set
// named in spec §4.3: Homebrew-formula, Homebrew-cask, Homebrew-tap,
// npm-global, pnpm-global, bun-global, gem, uv, winget.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewHomebrewFormula())
	r.Register(NewHomebrewCask())
	r.Register(NewHomebrewTap())
	r.Register(NewNPMGlobal())
	r.Register(NewPNPMGlobal())
	r.Register(NewBunGlobal())
	r.Register(NewGem())
	r.Register(NewUV())
	r.Register(NewWinget())
	return r
}
