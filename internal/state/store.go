package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tether-sh/tether/pkg/safeio"
)

// LoadSyncState reads state.json from dir, returning a fresh SyncState
// for machineID if the file does not yet exist (first run).
func LoadSyncState(dir, machineID string) (*SyncState, error) {
	path := filepath.Join(dir, "state.json")
	data, err := os.ReadFile(path) // #nosec G304 -- fixed local state path under the tether home
	if errors.Is(err, os.ErrNotExist) {
		return NewSyncState(machineID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sync state: %w", err)
	}
	var s SyncState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse sync state: %w", err)
	}
	return &s, nil
}

// SaveSyncState atomically writes s to state.json under dir.
func SaveSyncState(dir string, s *SyncState) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sync state: %w", err)
	}
	return safeio.WriteFileAtomic(filepath.Join(dir, "state.json"), data, 0o600)
}

// LoadMachineState reads machines/<id>.json from the content store clone
// root, returning a fresh MachineState if this machine has never synced
// before.
func LoadMachineState(repoRoot, machineID, hostname, osVersion string) (*MachineState, error) {
	path := filepath.Join(repoRoot, "machines", machineID+".json")
	data, err := os.ReadFile(path) // #nosec G304 -- path built from this machine's own ID, never user input
	if errors.Is(err, os.ErrNotExist) {
		return NewMachineState(machineID, hostname, osVersion), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read machine state: %w", err)
	}
	var m MachineState
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse machine state: %w", err)
	}
	return &m, nil
}

// SaveMachineState atomically writes m to machines/<id>.json under repoRoot.
func SaveMachineState(repoRoot string, m *MachineState) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal machine state: %w", err)
	}
	path := filepath.Join(repoRoot, "machines", m.MachineID+".json")
	return safeio.WriteFileAtomic(path, data, 0o644)
}

// ListMachineStates loads every machines/*.json file in repoRoot, used by
// the package-union computation in phase 10.
func ListMachineStates(repoRoot string) ([]*MachineState, error) {
	dir := filepath.Join(repoRoot, "machines")
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list machine states: %w", err)
	}
	var out []*MachineState
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name())) // #nosec G304 -- filenames come from ReadDir, not external input
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		var m MachineState
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		out = append(out, &m)
	}
	return out, nil
}

// RemoveMachineState deletes machines/<id>.json, the only sanctioned way
// a MachineState is ever removed (the explicit "remove machine" action).
func RemoveMachineState(repoRoot, machineID string) error {
	path := filepath.Join(repoRoot, "machines", machineID+".json")
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove machine state: %w", err)
	}
	return nil
}

// LoadPendingConflicts reads conflicts.json from dir.
func LoadPendingConflicts(dir string) ([]PendingConflict, error) {
	path := filepath.Join(dir, "conflicts.json")
	data, err := os.ReadFile(path) // #nosec G304 -- fixed local state path under the tether home
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read conflicts: %w", err)
	}
	var conflicts []PendingConflict
	if err := json.Unmarshal(data, &conflicts); err != nil {
		return nil, fmt.Errorf("parse conflicts: %w", err)
	}
	return conflicts, nil
}

// SavePendingConflicts atomically writes conflicts to conflicts.json under dir.
func SavePendingConflicts(dir string, conflicts []PendingConflict) error {
	if conflicts == nil {
		conflicts = []PendingConflict{}
	}
	data, err := json.MarshalIndent(conflicts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal conflicts: %w", err)
	}
	return safeio.WriteFileAtomic(filepath.Join(dir, "conflicts.json"), data, 0o600)
}
