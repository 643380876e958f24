package packages

import (
	_ "embed"
	"fmt"
	"runtime"

	"gopkg.in/yaml.v3"
)

//go:embed capabilities.yaml
var capabilitiesYAML []byte

// Capability describes one manager's static, platform-dependent
// properties: which OSes it runs on, whether it needs elevation, and
// which manifest file it owns in the shared repo. It carries no
// runtime state; Manager.Available does the live detection.
type Capability struct {
	Key              string   `yaml:"key"`
	Name             string   `yaml:"name"`
	Platforms        []string `yaml:"platforms"`
	RequiresSudo     bool     `yaml:"requires_sudo"`
	Manifest         string   `yaml:"manifest"`
	DetectionCommand string   `yaml:"detection_command"`
	Notes            string   `yaml:"notes,omitempty"`
}

type capabilitiesConfig struct {
	Version         string       `yaml:"version"`
	PackageManagers []Capability `yaml:"package_managers"`
}

// LoadCapabilities parses the embedded capability table.
func LoadCapabilities() ([]Capability, error) {
	var cfg capabilitiesConfig
	if err := yaml.Unmarshal(capabilitiesYAML, &cfg); err != nil {
		return nil, fmt.Errorf("packages: parse capabilities.yaml: %w", err)
	}
	return cfg.PackageManagers, nil
}

// SupportsPlatform reports whether c lists platform among its supported
// platforms (an empty list means unrestricted).
func (c Capability) SupportsPlatform(platform string) bool {
	if len(c.Platforms) == 0 {
		return true
	}
	for _, p := range c.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

// ForThisPlatform filters caps down to the ones that support runtime.GOOS.
func ForThisPlatform(caps []Capability) []Capability {
	out := make([]Capability, 0, len(caps))
	for _, c := range caps {
		if c.SupportsPlatform(runtime.GOOS) {
			out = append(out, c)
		}
	}
	return out
}
