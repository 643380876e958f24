package syncengine

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tether-sh/tether/internal/packages"
	"github.com/tether-sh/tether/internal/state"
	"github.com/tether-sh/tether/pkg/notify"
	"github.com/tether-sh/tether/pkg/safeio"
)

// phase10BuildMachineState rebuilds files/packages/dotfiles/project_configs
// on the MachineState phase 4 loaded, querying every enabled manager's
// installed set concurrently (errgroup) and recomputing tombstones per
// spec §4.1 phase 10 / the tombstone idempotence invariant.
func (e *Engine) phase10BuildMachineState(tc *tickContext) error {
	m := tc.machineState
	m.Files = make(map[string]string, len(tc.syncState.Files))
	for path, fs := range tc.syncState.Files {
		if path == selfConfigWatermarkKey {
			continue
		}
		m.Files[path] = fs.FP
	}

	profile := e.Config.Profiles[e.ProfileName]
	m.Dotfiles = m.Dotfiles[:0]
	for _, spec := range profile.Dotfiles {
		m.Dotfiles = append(m.Dotfiles, spec.Path)
	}

	type listing struct {
		key       string
		installed []string
		err       error
	}
	results := make([]listing, len(profile.PackageManagers))
	g, gctx := errgroup.WithContext(tc.ctx)
	for i, key := range profile.PackageManagers {
		i, key := i, key
		g.Go(func() error {
			mgr, ok := e.Managers.Get(key)
			if !ok || !mgr.Available(gctx) {
				results[i] = listing{key: key}
				return nil
			}
			installed, err := mgr.ListInstalled(gctx)
			results[i] = listing{key: key, installed: installed, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("query package managers: %w", err)
	}

	for _, r := range results {
		if r.err != nil {
			tc.warn(10, r.key, "list installed packages: %v", r.err)
			continue
		}
		previouslyInstalled := append([]string(nil), m.Packages[r.key]...)
		m.ApplyTombstones(r.key, previouslyInstalled, r.installed)
	}
	return nil
}

// phase11ImportMissingPackages computes, for every enabled manager, the
// set the union minus this machine's installed set minus its own
// tombstones, and installs it. Homebrew-cask failures that look like an
// interactive-elevation prompt are deferred rather than treated as hard
// failures, per §4.3's password-deferral policy.
func (e *Engine) phase11ImportMissingPackages(tc *tickContext) error {
	if tc.dryRun {
		return nil
	}
	profile := e.Config.Profiles[e.ProfileName]
	allMachines, err := state.ListMachineStates(e.Store.Dir())
	if err != nil {
		return fmt.Errorf("list machine states: %w", err)
	}
	allMachines = spliceCurrentMachine(allMachines, tc.machineState)

	var deferredThisTick []string
	for _, key := range profile.PackageManagers {
		mgr, ok := e.Managers.Get(key)
		if !ok || !mgr.Available(tc.ctx) {
			continue
		}
		union := packages.Union(allMachines, tc.machineState, key)
		missing := packages.Missing(union, tc.machineState.Packages[key], tc.machineState, key)
		for _, name := range missing {
			if err := mgr.Install(tc.ctx, name); err != nil {
				if errors.Is(err, packages.ErrInteractiveElevation) {
					tc.syncState.DeferCask(name)
					deferredThisTick = append(deferredThisTick, name)
					continue
				}
				tc.warn(11, key+"/"+name, "install: %v", err)
				continue
			}
			tc.packagesAdded[key] = append(tc.packagesAdded[key], name)
		}
	}

	if len(deferredThisTick) > 0 && e.Notifier != nil {
		if err := notify.NotifyDeferredCasks(e.Notifier, deferredThisTick); err != nil {
			tc.warn(11, "", "notify deferred casks: %v", err)
		}
	}
	return nil
}

// phase12ExportManifests writes each enabled manager's union manifest to
// manifests/<file> in the clone, per §4.3's union rule.
func (e *Engine) phase12ExportManifests(tc *tickContext) error {
	if tc.dryRun {
		return nil
	}
	profile := e.Config.Profiles[e.ProfileName]
	allMachines, err := state.ListMachineStates(e.Store.Dir())
	if err != nil {
		return fmt.Errorf("list machine states: %w", err)
	}
	allMachines = spliceCurrentMachine(allMachines, tc.machineState)

	for _, key := range profile.PackageManagers {
		mgr, ok := e.Managers.Get(key)
		if !ok {
			continue
		}
		union := packages.Union(allMachines, tc.machineState, key)
		text, err := mgr.ExportManifest(union)
		if err != nil {
			tc.warn(12, key, "export manifest: %v", err)
			continue
		}
		if err := writeManifestFile(e.Layout.ManifestPath(mgr.ManifestFilename()), text); err != nil {
			tc.warn(12, key, "write manifest: %v", err)
		}
	}
	return nil
}

func writeManifestFile(path, text string) error {
	return safeio.WriteFileAtomic(path, []byte(text), 0o644)
}

// spliceCurrentMachine replaces allMachines' stale entry for mine's
// machine ID (or appends it, on a first tick with no on-disk state yet)
// with mine, the MachineState phase 10 just rebuilt in memory. The
// on-disk copy at machines/<id>.json isn't written until phase 13, so
// without this splice the union/missing computation for this tick would
// never see packages this machine just reported as installed.
func spliceCurrentMachine(allMachines []*state.MachineState, mine *state.MachineState) []*state.MachineState {
	for i, m := range allMachines {
		if m.MachineID == mine.MachineID {
			allMachines[i] = mine
			return allMachines
		}
	}
	return append(allMachines, mine)
}
