package gitstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir
}

func TestOpenExistingRepo(t *testing.T) {
	dir := initRepo(t)
	store, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestOpenNonRepoFails(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}

func TestCommitStagesAndCommits(t *testing.T) {
	dir := initRepo(t)
	store, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "zshrc.enc"), []byte("blob"), 0o644))

	hash, err := store.Commit("sync: zshrc", "tether", "tether@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	head, err := store.RevParseHEAD()
	require.NoError(t, err)
	assert.Equal(t, hash, head)
}

func TestCommitWithNoChangesIsNoOp(t *testing.T) {
	dir := initRepo(t)
	store, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	first, err := store.Commit("first", "tether", "tether@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := store.Commit("nothing changed", "tether", "tether@example.com")
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestStaleRebaseFalseOnCleanRepo(t *testing.T) {
	dir := initRepo(t)
	store, err := Open(dir)
	require.NoError(t, err)
	assert.False(t, store.StaleRebase())
}

func TestStaleRebaseDetectsRebaseApply(t *testing.T) {
	dir := initRepo(t)
	store, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git", "rebase-apply"), 0o750))
	assert.True(t, store.StaleRebase())
}

func TestCloneIsIdempotentOnExistingDir(t *testing.T) {
	dir := initRepo(t)
	store, err := Clone(context.Background(), "https://example.invalid/repo.git", dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestLayoutPaths(t *testing.T) {
	layout := NewLayout("/home/me/.tether/sync")
	assert.Equal(t, filepath.Join("/home/me/.tether/sync", "dotfiles", "zshrc.enc"), layout.DotfileBlob(".zshrc"))
	assert.Equal(t, filepath.Join("/home/me/.tether/sync", "dotfiles", "tether", "config.toml.enc"), layout.SelfConfigBlob())
	assert.Equal(t, filepath.Join("/home/me/.tether/sync", "configs", ".config/foo.enc"), layout.ConfigBlob(".config/foo"))
	assert.Equal(t, filepath.Join("/home/me/.tether/sync", "manifests", "Brewfile"), layout.ManifestPath("Brewfile"))
	assert.Equal(t, filepath.Join("/home/me/.tether/sync", "projects", "github.com/org/repo"), layout.ProjectConfigPath("github.com/org/repo"))
	assert.Equal(t, filepath.Join("/home/me/.tether/sync", ".tether-collab.toml"), layout.CollabManifestPath())
}

func TestNormalizeRemoteURLHandlesSSHAndHTTPS(t *testing.T) {
	assert.Equal(t, "github.com/org/repo", NormalizeRemoteURL("git@github.com:org/repo.git"))
	assert.Equal(t, "github.com/org/repo", NormalizeRemoteURL("https://github.com/org/repo.git"))
	assert.Equal(t, "github.com/org/repo", NormalizeRemoteURL("ssh://git@github.com/org/repo.git"))
}
