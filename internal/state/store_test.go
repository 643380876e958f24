package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSyncStateMissingReturnsFresh(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadSyncState(dir, "machine-1")
	require.NoError(t, err)
	assert.Equal(t, "machine-1", s.MachineID)
	assert.Empty(t, s.Files)
}

func TestSaveThenLoadSyncStateRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := NewSyncState("machine-1")
	s.Files[".zshrc"] = FileState{FP: "abc123", LastModified: time.Now().UTC().Truncate(time.Second), Synced: true}
	s.DeferCask("google-chrome")

	require.NoError(t, SaveSyncState(dir, s))

	loaded, err := LoadSyncState(dir, "machine-1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", loaded.Files[".zshrc"].FP)
	assert.Equal(t, []string{"google-chrome"}, loaded.DeferredCasks)
}

func TestDeferCaskIsIdempotent(t *testing.T) {
	s := NewSyncState("m")
	s.DeferCask("docker")
	s.DeferCask("docker")
	assert.Equal(t, []string{"docker"}, s.DeferredCasks)
}

func TestClearDeferredCask(t *testing.T) {
	s := NewSyncState("m")
	s.DeferCask("docker")
	s.DeferCask("slack")
	s.ClearDeferredCask("docker")
	assert.Equal(t, []string{"slack"}, s.DeferredCasks)
}

func TestLoadMachineStateMissingReturnsFresh(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadMachineState(dir, "machine-1", "host-a", "macOS 14")
	require.NoError(t, err)
	assert.Equal(t, "host-a", m.Hostname)
	assert.Empty(t, m.Packages)
}

func TestSaveThenListMachineStates(t *testing.T) {
	dir := t.TempDir()
	a := NewMachineState("machine-a", "host-a", "macOS 14")
	b := NewMachineState("machine-b", "host-b", "macOS 14")
	require.NoError(t, SaveMachineState(dir, a))
	require.NoError(t, SaveMachineState(dir, b))

	all, err := ListMachineStates(dir)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRemoveMachineState(t *testing.T) {
	dir := t.TempDir()
	m := NewMachineState("machine-a", "host-a", "macOS 14")
	require.NoError(t, SaveMachineState(dir, m))

	require.NoError(t, RemoveMachineState(dir, "machine-a"))

	all, err := ListMachineStates(dir)
	require.NoError(t, err)
	assert.Empty(t, all)
}

// TestTombstoneIdempotence pins the invariant: once a package is absent
// it stays tombstoned until it reappears in an installed set.
func TestTombstoneIdempotence(t *testing.T) {
	m := NewMachineState("machine-b", "host-b", "macOS 14")

	m.ApplyTombstones("brew_formulae", nil, []string{"jq", "ripgrep"})
	assert.Empty(t, m.RemovedPackages["brew_formulae"])

	m.ApplyTombstones("brew_formulae", []string{"jq", "ripgrep"}, []string{"ripgrep"})
	assert.ElementsMatch(t, []string{"jq"}, m.RemovedPackages["brew_formulae"])

	m.ApplyTombstones("brew_formulae", []string{"ripgrep"}, []string{"ripgrep"})
	assert.ElementsMatch(t, []string{"jq"}, m.RemovedPackages["brew_formulae"])

	m.ApplyTombstones("brew_formulae", []string{"ripgrep"}, []string{"ripgrep", "jq"})
	assert.Empty(t, m.RemovedPackages["brew_formulae"])
}

func TestPendingConflictsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	conflicts := []PendingConflict{
		{Path: ".zshrc", LocalFP: "b", RemoteFP: "a", DetectedAt: time.Now().UTC().Truncate(time.Second)},
	}
	require.NoError(t, SavePendingConflicts(dir, conflicts))

	loaded, err := LoadPendingConflicts(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, ".zshrc", loaded[0].Path)
}

func TestLoadPendingConflictsMissingReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	loaded, err := LoadPendingConflicts(dir)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
