package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTetherHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := os.Getenv("TETHER_HOME")
	require.NoError(t, os.Setenv("TETHER_HOME", dir))
	t.Cleanup(func() {
		if old == "" {
			_ = os.Unsetenv("TETHER_HOME")
		} else {
			_ = os.Setenv("TETHER_HOME", old)
		}
	})
	return dir
}

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	withTetherHome(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, CurrentConfigVersion, cfg.ConfigVersion)
	assert.True(t, cfg.Features.PersonalDotfiles)
	assert.True(t, cfg.Features.PersonalPackages)
	assert.False(t, cfg.Features.TeamDotfiles)
	assert.Equal(t, 300, cfg.Sync.IntervalSeconds)
}

func TestSaveThenLoadConfigRoundTrips(t *testing.T) {
	withTetherHome(t)

	cfg := Default()
	cfg.RemoteURL = "git@example.com:me/dotfiles.git"
	cfg.Profiles["dev"] = Profile{
		Dotfiles:    []DotfileSpec{{Path: ".zshrc", CreateIfMissing: true}},
		Directories: []string{".config/nvim"},
	}

	require.NoError(t, SaveConfig(&cfg))

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "git@example.com:me/dotfiles.git", loaded.RemoteURL)
	require.Contains(t, loaded.Profiles, "dev")
	assert.Equal(t, ".zshrc", loaded.Profiles["dev"].Dotfiles[0].Path)
}

func TestLoadConfigRejectsFutureVersion(t *testing.T) {
	home := withTetherHome(t)
	data := []byte("config_version = 99\n")
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.toml"), data, 0o644))

	_, err := LoadConfig()
	require.Error(t, err)
	var tooNew *ErrConfigVersionTooNew
	assert.ErrorAs(t, err, &tooNew)
	assert.Equal(t, 99, tooNew.Found)
}

func TestLoadConfigMigratesV1ToV2(t *testing.T) {
	home := withTetherHome(t)
	v1 := `remote_url = "git@example.com:me/dotfiles.git"

[[dotfiles]]
path = ".bashrc"
create_if_missing = true

directories = [".config/fish"]
package_managers = ["brew-formula"]
`
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.toml"), []byte(v1), 0o644))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.ConfigVersion)
	require.Contains(t, cfg.Profiles, "dev")
	dev := cfg.Profiles["dev"]
	require.Len(t, dev.Dotfiles, 1)
	assert.Equal(t, ".bashrc", dev.Dotfiles[0].Path)
	assert.Equal(t, []string{".config/fish"}, dev.Directories)
	assert.Equal(t, []string{"brew-formula"}, dev.PackageManagers)
}

func TestMigrateRejectsUnknownOlderVersion(t *testing.T) {
	_, err := Migrate([]byte("config_version = 0\n"), 0)
	require.Error(t, err)
}

func TestGetTetherHomeHonorsEnvVar(t *testing.T) {
	custom := "/tmp/test-tether-home"
	old := os.Getenv("TETHER_HOME")
	require.NoError(t, os.Setenv("TETHER_HOME", custom))
	t.Cleanup(func() {
		if old == "" {
			_ = os.Unsetenv("TETHER_HOME")
		} else {
			_ = os.Setenv("TETHER_HOME", old)
		}
	})

	home, err := GetTetherHome()
	require.NoError(t, err)
	assert.Equal(t, custom, home)
}

func TestEnsureTetherHomeCreatesDirectory(t *testing.T) {
	withTetherHome(t)

	home, err := EnsureTetherHome()
	require.NoError(t, err)
	info, err := os.Stat(home)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDirectoryHelpers(t *testing.T) {
	withTetherHome(t)

	syncDir, err := SyncDir()
	require.NoError(t, err)
	assert.Equal(t, "sync", filepath.Base(syncDir))

	teamDir, err := TeamDir("acme")
	require.NoError(t, err)
	assert.Equal(t, "sync", filepath.Base(teamDir))
	assert.Contains(t, teamDir, filepath.Join("teams", "acme"))

	collabDir, err := CollabDir("alice")
	require.NoError(t, err)
	assert.Contains(t, collabDir, filepath.Join("collabs", "alice"))
}
