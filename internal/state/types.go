// Package state persists the local-only SyncState, the shared-repo
// MachineState, and the pending-conflict set every sync tick reads and
// rewrites. All three are JSON, written via safeio's atomic
// write-temp-then-rename so a crash mid-tick never leaves a torn file.
package state

import "time"

// FileState is the per-tracked-file record inside SyncState: the
// fingerprint of the most recent remote-or-local-synced version of the
// file on this machine, per the data model's watermark invariant.
type FileState struct {
	FP           string    `json:"fp"`
	LastModified time.Time `json:"last_modified"`
	Synced       bool      `json:"synced"`
}

// PackageState is the per-manager-key record inside SyncState.
type PackageState struct {
	LastSync     time.Time `json:"last_sync"`
	LastModified time.Time `json:"last_modified"`
	LastUpgrade  time.Time `json:"last_upgrade"`
	ManifestFP   string    `json:"manifest_fp"`
}

// SyncState is the per-machine, local-only watermark file. It is never
// shared between machines.
type SyncState struct {
	MachineID              string                  `json:"machine_id"`
	LastSync               time.Time               `json:"last_sync"`
	Files                  map[string]FileState    `json:"files"`
	Packages               map[string]PackageState `json:"packages"`
	DeferredCasks          []string                `json:"deferred_casks"`
	LastUpgrade            time.Time               `json:"last_upgrade"`
	LastUpgradeWithUpdates time.Time               `json:"last_upgrade_with_updates"`
}

// NewSyncState returns an empty SyncState for machineID.
func NewSyncState(machineID string) *SyncState {
	return &SyncState{
		MachineID: machineID,
		Files:     map[string]FileState{},
		Packages:  map[string]PackageState{},
	}
}

// DeferCask appends name to the deferred-cask ordered set if not already present.
func (s *SyncState) DeferCask(name string) {
	for _, c := range s.DeferredCasks {
		if c == name {
			return
		}
	}
	s.DeferredCasks = append(s.DeferredCasks, name)
}

// ClearDeferredCask removes name from the deferred-cask set, e.g. after
// an interactive retry succeeds.
func (s *SyncState) ClearDeferredCask(name string) {
	out := s.DeferredCasks[:0]
	for _, c := range s.DeferredCasks {
		if c != name {
			out = append(out, c)
		}
	}
	s.DeferredCasks = out
}

// MachineState is the per-machine record in the shared repo under
// machines/<id>.json. It is mutated only by its owning machine and
// never deleted except by an explicit "remove machine" action.
type MachineState struct {
	MachineID             string              `json:"machine_id"`
	Hostname              string              `json:"hostname"`
	OSVersion             string              `json:"os_version"`
	LastSync              time.Time           `json:"last_sync"`
	Files                 map[string]string   `json:"files"`            // path -> FP
	Packages              map[string][]string `json:"packages"`         // manager-key -> installed names
	RemovedPackages       map[string][]string `json:"removed_packages"` // manager-key -> tombstoned names
	Dotfiles              []string            `json:"dotfiles"`
	ProjectConfigs        map[string][]string `json:"project_configs"`
	IgnoredDotfiles       []string            `json:"ignored_dotfiles"`
	IgnoredProjectConfigs map[string][]string `json:"ignored_project_configs"`
}

// NewMachineState returns an empty MachineState for a first sync.
func NewMachineState(machineID, hostname, osVersion string) *MachineState {
	return &MachineState{
		MachineID:             machineID,
		Hostname:              hostname,
		OSVersion:             osVersion,
		Files:                 map[string]string{},
		Packages:              map[string][]string{},
		RemovedPackages:       map[string][]string{},
		ProjectConfigs:        map[string][]string{},
		IgnoredProjectConfigs: map[string][]string{},
	}
}

// ApplyTombstones recomputes RemovedPackages[managerKey] from the prior
// installed set and the newly observed installed set: anything present
// before but absent now joins the tombstone set; anything now present is
// removed from it. This is the one piece of tombstone bookkeeping every
// phase-10 "build machine state" step must run through, per the
// tombstone idempotence invariant.
func (m *MachineState) ApplyTombstones(managerKey string, previouslyInstalled, nowInstalled []string) {
	nowSet := make(map[string]bool, len(nowInstalled))
	for _, p := range nowInstalled {
		nowSet[p] = true
	}
	tombstones := make(map[string]bool)
	for _, name := range m.RemovedPackages[managerKey] {
		tombstones[name] = true
	}
	for _, name := range previouslyInstalled {
		if !nowSet[name] {
			tombstones[name] = true
		}
	}
	for name := range nowSet {
		delete(tombstones, name)
	}

	out := make([]string, 0, len(tombstones))
	for name := range tombstones {
		out = append(out, name)
	}
	m.RemovedPackages[managerKey] = out
	m.Packages[managerKey] = append([]string(nil), nowInstalled...)
}

// PendingConflict is one unresolved true conflict, stored in the local
// conflicts.json file. Removed when resolved.
type PendingConflict struct {
	Path       string    `json:"path"`
	LocalFP    string    `json:"local_fp"`
	RemoteFP   string    `json:"remote_fp"`
	DetectedAt time.Time `json:"detected_at"`
}
