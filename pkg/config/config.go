// Package config loads and persists tether's TOML configuration, including
// the monotone config_version gate and the v1->v2 profile migration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// CurrentConfigVersion is the newest schema version this build understands.
// A config file with a higher version is a fatal ConfigVersionTooNew load error.
const CurrentConfigVersion = 2

// Features gates optional sync surfaces.
type Features struct {
	PersonalDotfiles bool `mapstructure:"personal_dotfiles" toml:"personal_dotfiles"`
	PersonalPackages bool `mapstructure:"personal_packages" toml:"personal_packages"`
	TeamDotfiles     bool `mapstructure:"team_dotfiles" toml:"team_dotfiles"`
	CollabSecrets    bool `mapstructure:"collab_secrets" toml:"collab_secrets"`
	TeamLayering     bool `mapstructure:"team_layering" toml:"team_layering"`
}

// DotfileSpec is one tracked dotfile entry.
type DotfileSpec struct {
	Path            string `mapstructure:"path" toml:"path"`
	CreateIfMissing bool   `mapstructure:"create_if_missing" toml:"create_if_missing"`
}

// Profile groups the dotfiles, directories, and package managers one sync
// identity tracks. Config v1 had no profiles; migration synthesizes "dev".
type Profile struct {
	Dotfiles        []DotfileSpec `mapstructure:"dotfiles" toml:"dotfiles"`
	Directories     []string      `mapstructure:"directories" toml:"directories"`
	PackageManagers []string      `mapstructure:"package_managers" toml:"package_managers"`
	// ProjectSearchPaths lists directories scanned for git checkouts
	// whose normalized remote URL matches a tracked projects/<url>/ entry.
	ProjectSearchPaths []string `mapstructure:"project_search_paths" toml:"project_search_paths"`
}

// SyncSettings controls the scheduler's tick cadence.
type SyncSettings struct {
	IntervalSeconds  int  `mapstructure:"interval_seconds" toml:"interval_seconds"`
	OnlyIfGitignored bool `mapstructure:"only_if_gitignored" toml:"only_if_gitignored"`
}

// TeamConfig is one named team layer: its own shared-repo remote and the
// profile (dotfiles/directories/package managers) it syncs, independent
// of the personal RemoteURL's profile set.
type TeamConfig struct {
	RemoteURL string `mapstructure:"remote_url" toml:"remote_url"`
	Profile   string `mapstructure:"profile" toml:"profile"`
	// OrgKey scopes which collaborators' secrets this team's members can
	// decrypt; see the glossary's "org key" entry.
	OrgKey string `mapstructure:"org_key" toml:"org_key"`
}

// Config is the root of ~/.tether/config.toml.
type Config struct {
	ConfigVersion int                   `mapstructure:"config_version" toml:"config_version"`
	RemoteURL     string                `mapstructure:"remote_url" toml:"remote_url"`
	CollabURL     string                `mapstructure:"collab_url" toml:"collab_url"`
	Features      Features              `mapstructure:"features" toml:"features"`
	Sync          SyncSettings          `mapstructure:"sync" toml:"sync"`
	Profiles      map[string]Profile    `mapstructure:"profiles" toml:"profiles"`
	Teams         map[string]TeamConfig `mapstructure:"teams" toml:"teams"`
}

// ErrConfigVersionTooNew is returned when the on-disk config_version exceeds
// CurrentConfigVersion.
type ErrConfigVersionTooNew struct {
	Found int
}

func (e *ErrConfigVersionTooNew) Error() string {
	return fmt.Sprintf("config_version %d is newer than supported version %d", e.Found, CurrentConfigVersion)
}

var defaultConfig = Config{
	ConfigVersion: CurrentConfigVersion,
	Features: Features{
		PersonalDotfiles: true,
		PersonalPackages: true,
		TeamDotfiles:     false,
		CollabSecrets:    false,
		TeamLayering:     false,
	},
	Sync: SyncSettings{
		IntervalSeconds:  300,
		OnlyIfGitignored: false,
	},
	Profiles: map[string]Profile{},
}

// Default returns a copy of the built-in default configuration.
func Default() Config {
	return defaultConfig
}

// LoadConfig loads configuration from ~/.tether/config.toml (or the
// TETHER_HOME override), applying defaults for anything unset. A config
// file newer than CurrentConfigVersion is a fatal error; one older is
// migrated in place via Migrate before being unmarshaled.
func LoadConfig() (*Config, error) {
	home, err := GetTetherHome()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(home, "config.toml")

	data, err := os.ReadFile(path) // #nosec G304 -- fixed, user-owned config path
	if os.IsNotExist(err) {
		cfg := defaultConfig
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	version, err := peekVersion(data)
	if err != nil {
		return nil, err
	}
	if version > CurrentConfigVersion {
		return nil, &ErrConfigVersionTooNew{Found: version}
	}
	if version < CurrentConfigVersion {
		data, err = Migrate(data, version)
		if err != nil {
			return nil, fmt.Errorf("migrate config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetDefault("features.personal_dotfiles", defaultConfig.Features.PersonalDotfiles)
	v.SetDefault("features.personal_packages", defaultConfig.Features.PersonalPackages)
	v.SetDefault("features.team_dotfiles", defaultConfig.Features.TeamDotfiles)
	v.SetDefault("features.collab_secrets", defaultConfig.Features.CollabSecrets)
	v.SetDefault("features.team_layering", defaultConfig.Features.TeamLayering)
	v.SetDefault("sync.interval_seconds", defaultConfig.Sync.IntervalSeconds)
	v.SetDefault("sync.only_if_gitignored", defaultConfig.Sync.OnlyIfGitignored)
	v.SetEnvPrefix("TETHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(strings.NewReader(string(data))); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to ~/.tether/config.toml atomically.
func SaveConfig(cfg *Config) error {
	home, err := EnsureTetherHome()
	if err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(filepath.Join(home, "config.toml"), data)
}

// peekVersion extracts config_version without fully unmarshaling, so an
// unsupported future schema never has to round-trip through viper/mapstructure.
func peekVersion(data []byte) (int, error) {
	var probe struct {
		ConfigVersion int `toml:"config_version"`
	}
	if err := toml.Unmarshal(data, &probe); err != nil {
		return 0, fmt.Errorf("parse config_version: %w", err)
	}
	if probe.ConfigVersion == 0 {
		return 1, nil // absent config_version means the original v1 flat schema
	}
	return probe.ConfigVersion, nil
}

// Migrate upgrades raw TOML bytes from fromVersion to CurrentConfigVersion.
// v1 -> v2 synthesizes a default "dev" profile from the flat
// dotfiles/directories/package_managers lists the v1 schema carried at the
// document root.
func Migrate(data []byte, fromVersion int) ([]byte, error) {
	if fromVersion >= CurrentConfigVersion {
		return data, nil
	}
	if fromVersion != 1 {
		return nil, fmt.Errorf("no migration path from config_version %d", fromVersion)
	}

	var v1 struct {
		RemoteURL       string        `toml:"remote_url"`
		CollabURL       string        `toml:"collab_url"`
		Dotfiles        []DotfileSpec `toml:"dotfiles"`
		Directories     []string      `toml:"directories"`
		PackageManagers []string      `toml:"package_managers"`
	}
	if err := toml.Unmarshal(data, &v1); err != nil {
		return nil, err
	}

	migrated := Config{
		ConfigVersion: 2,
		RemoteURL:     v1.RemoteURL,
		CollabURL:     v1.CollabURL,
		Features:      defaultConfig.Features,
		Sync:          defaultConfig.Sync,
		Profiles: map[string]Profile{
			"dev": {
				Dotfiles:        v1.Dotfiles,
				Directories:     v1.Directories,
				PackageManagers: v1.PackageManagers,
			},
		},
	}
	return toml.Marshal(migrated)
}

// GetTetherHome returns the tether home directory, honoring TETHER_HOME.
func GetTetherHome() (string, error) {
	if home := os.Getenv("TETHER_HOME"); home != "" {
		return home, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".tether"), nil
}

// EnsureTetherHome creates the tether home directory if missing.
func EnsureTetherHome() (string, error) {
	home, err := GetTetherHome()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(home, 0o750); err != nil {
		return "", fmt.Errorf("create tether home: %w", err)
	}
	return home, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cfg-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(path)
		return os.Rename(tmpName, path)
	}
	return nil
}

// SyncDir returns the local clone directory for the personal repo.
func SyncDir() (string, error) {
	home, err := GetTetherHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "sync"), nil
}

// TeamDir returns the local clone directory for the named team repo.
func TeamDir(name string) (string, error) {
	home, err := GetTetherHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "teams", name, "sync"), nil
}

// CollabDir returns the local clone directory for the named collab repo.
func CollabDir(name string) (string, error) {
	home, err := GetTetherHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "collabs", name, "sync"), nil
}
