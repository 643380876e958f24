package syncengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tether-sh/tether/internal/crypto"
	"github.com/tether-sh/tether/internal/gitstore"
	"github.com/tether-sh/tether/internal/state"
	"github.com/tether-sh/tether/pkg/config"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	repoDir := t.TempDir()
	_, err := git.PlainInit(repoDir, false)
	require.NoError(t, err)
	store, err := gitstore.Open(repoDir)
	require.NoError(t, err)

	tetherHome := t.TempDir()

	return &Engine{
		Config:      &config.Config{ConfigVersion: 2, Profiles: map[string]config.Profile{}},
		ProfileName: "default",
		TetherHome:  tetherHome,
		Store:       store,
		Layout:      gitstore.NewLayout(repoDir),
		MachineID:   "machine-a",
		Hostname:    "host-a",
		OSVersion:   "linux",
	}, repoDir
}

func TestPhase13WriteMachineStateWritesFileUnderMachinesDir(t *testing.T) {
	e, repoDir := newTestEngine(t)
	tc := &tickContext{machineState: state.NewMachineState(e.MachineID, "", "")}

	require.NoError(t, e.phase13WriteMachineState(tc))

	path := filepath.Join(repoDir, "machines", "machine-a.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "machine-a")
	assert.Equal(t, "host-a", tc.machineState.Hostname)
}

func TestPhase13WriteMachineStateSkippedOnDryRun(t *testing.T) {
	e, repoDir := newTestEngine(t)
	tc := &tickContext{dryRun: true, machineState: state.NewMachineState(e.MachineID, "", "")}

	require.NoError(t, e.phase13WriteMachineState(tc))

	_, err := os.Stat(filepath.Join(repoDir, "machines", "machine-a.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestPhase14SelfConfigExportEncryptsAndIsDecryptable(t *testing.T) {
	e, _ := newTestEngine(t)
	key, err := crypto.GenerateSymmetricKey()
	require.NoError(t, err)
	tc := &tickContext{key: key}

	require.NoError(t, e.phase14SelfConfigExport(tc))

	blob, err := os.ReadFile(e.Layout.SelfConfigBlob())
	require.NoError(t, err)
	plaintext, err := crypto.Decrypt(key, blob)
	require.NoError(t, err)
	assert.Contains(t, string(plaintext), "config_version")
}

func TestPhase14SelfConfigExportSkippedOnDryRun(t *testing.T) {
	e, _ := newTestEngine(t)
	tc := &tickContext{dryRun: true}

	require.NoError(t, e.phase14SelfConfigExport(tc))

	_, err := os.Stat(e.Layout.SelfConfigBlob())
	assert.True(t, os.IsNotExist(err))
}

func TestPhase15CommitAndPushNoOpWhenClean(t *testing.T) {
	e, _ := newTestEngine(t)
	tc := &tickContext{ctx: context.Background()}

	require.NoError(t, e.phase15CommitAndPush(tc))
	assert.Empty(t, tc.commitHash)
}

func TestPhase15CommitAndPushCommitsThenFailsWithoutRemote(t *testing.T) {
	e, repoDir := newTestEngine(t)
	require.NoError(t, os.MkdirAll(filepath.Join(repoDir, "dotfiles"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "dotfiles", "zshrc.enc"), []byte("blob"), 0o644))

	tc := &tickContext{ctx: context.Background()}
	err := e.phase15CommitAndPush(tc)
	assert.Error(t, err) // no origin remote configured, push/re-pull must fail
	assert.NotEmpty(t, tc.commitHash)
}

func TestPhase16MarkSyncedPersistsSyncState(t *testing.T) {
	e, _ := newTestEngine(t)
	tc := &tickContext{syncState: state.NewSyncState(e.MachineID)}

	require.NoError(t, e.phase16MarkSynced(tc))

	reloaded, err := state.LoadSyncState(e.TetherHome, e.MachineID)
	require.NoError(t, err)
	assert.False(t, reloaded.LastSync.IsZero())
}

func TestPhase16MarkSyncedSkippedOnDryRun(t *testing.T) {
	e, _ := newTestEngine(t)
	tc := &tickContext{dryRun: true, syncState: state.NewSyncState(e.MachineID)}

	require.NoError(t, e.phase16MarkSynced(tc))

	reloaded, err := state.LoadSyncState(e.TetherHome, e.MachineID)
	require.NoError(t, err)
	assert.True(t, reloaded.LastSync.IsZero())
}
