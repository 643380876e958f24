package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOneCycleCallsTick(t *testing.T) {
	var ticked bool
	a := &Agent{Tick: func(ctx context.Context) error {
		ticked = true
		return nil
	}}
	require.NoError(t, a.runOneCycle(context.Background(), ""))
	assert.True(t, ticked)
}

func TestRunOneCycleRunsUpgradeAfterInterval(t *testing.T) {
	var upgraded bool
	a := &Agent{
		LastUpgrade: time.Now().Add(-25 * time.Hour),
		Upgrade: func(ctx context.Context) error {
			upgraded = true
			return nil
		},
	}
	require.NoError(t, a.runOneCycle(context.Background(), ""))
	assert.True(t, upgraded)
	assert.WithinDuration(t, time.Now(), a.LastUpgrade, time.Second)
}

func TestRunOneCycleSkipsUpgradeBeforeInterval(t *testing.T) {
	var upgraded bool
	last := time.Now().Add(-1 * time.Hour)
	a := &Agent{
		LastUpgrade: last,
		Upgrade: func(ctx context.Context) error {
			upgraded = true
			return nil
		},
	}
	require.NoError(t, a.runOneCycle(context.Background(), ""))
	assert.False(t, upgraded)
	assert.Equal(t, last, a.LastUpgrade)
}

func TestRunOneCycleDetectsSelfUpdate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tether-agent")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o755))

	a := &Agent{ExecutablePath: path}
	info, err := os.Stat(path)
	require.NoError(t, err)
	a.startMTime = info.ModTime()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o755))
	// Ensure the new mtime is observably later even on coarse filesystem clocks.
	newer := time.Now().Add(time.Second)
	require.NoError(t, os.Chtimes(path, newer, newer))

	err = a.runOneCycle(context.Background(), path)
	assert.ErrorIs(t, err, ErrSelfUpdateDetected)
}

func TestRunOneCycleNoSelfUpdateWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tether-agent")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o755))

	a := &Agent{ExecutablePath: path}
	info, err := os.Stat(path)
	require.NoError(t, err)
	a.startMTime = info.ModTime()

	var ticked bool
	a.Tick = func(ctx context.Context) error { ticked = true; return nil }

	require.NoError(t, a.runOneCycle(context.Background(), path))
	assert.True(t, ticked)
}
