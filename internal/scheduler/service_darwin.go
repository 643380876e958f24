//go:build darwin

package scheduler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// launchdPlistTemplate renders a per-user launchd job that runs the
// agent's daemon subcommand at a fixed interval, matching how a
// long-running background sync agent is installed as a user service
// on macOS.
const launchdPlistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.ExecutablePath}}</string>
		<string>daemon</string>
		<string>start</string>
		<string>--foreground</string>
	</array>
	<key>StartInterval</key>
	<integer>{{.IntervalSeconds}}</integer>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<false/>
	<key>StandardOutPath</key>
	<string>{{.LogPath}}</string>
	<key>StandardErrorPath</key>
	<string>{{.LogPath}}</string>
</dict>
</plist>
`

// ServiceSpec describes the parameters needed to render and install the
// platform-specific service definition.
type ServiceSpec struct {
	Label           string
	ExecutablePath  string
	IntervalSeconds int
	LogPath         string
}

// RenderLaunchdPlist renders spec into a launchd plist document.
func RenderLaunchdPlist(spec ServiceSpec) ([]byte, error) {
	tmpl, err := template.New("launchd").Parse(launchdPlistTemplate)
	if err != nil {
		return nil, fmt.Errorf("scheduler: parse launchd template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, spec); err != nil {
		return nil, fmt.Errorf("scheduler: render launchd plist: %w", err)
	}
	return buf.Bytes(), nil
}

// LaunchAgentPath returns the per-user LaunchAgents plist path for label.
func LaunchAgentPath(homeDir, label string) string {
	return filepath.Join(homeDir, "Library", "LaunchAgents", label+".plist")
}

// InstallService renders and writes the launchd plist for spec.
func InstallService(homeDir string, spec ServiceSpec) (string, error) {
	plist, err := RenderLaunchdPlist(spec)
	if err != nil {
		return "", err
	}
	path := LaunchAgentPath(homeDir, spec.Label)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("scheduler: create LaunchAgents dir: %w", err)
	}
	if err := os.WriteFile(path, plist, 0o644); err != nil {
		return "", fmt.Errorf("scheduler: write launchd plist: %w", err)
	}
	return path, nil
}

// UninstallService removes the launchd plist for label.
func UninstallService(homeDir, label string) error {
	path := LaunchAgentPath(homeDir, label)
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
