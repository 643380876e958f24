package packages

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// cliAdapter factors the common exec.Command plumbing every manager
// adapter needs: availability check, list/install/uninstall via a fixed
// argv template.
type cliAdapter struct {
	key              string
	binary           string
	listArgs         []string
	installArgs      func(name string) []string
	uninstallArgs    func(name string) []string
	updateAllArgs    []string
	manifestFilename string
}

func (a cliAdapter) Key() string             { return a.key }
func (a cliAdapter) ManifestFilename() string { return a.manifestFilename }

func (a cliAdapter) Available(ctx context.Context) bool {
	_, err := exec.LookPath(a.binary)
	return err == nil
}

func (a cliAdapter) ListInstalled(ctx context.Context) ([]string, error) {
	out, err := runCLI(ctx, a.binary, a.listArgs...)
	if err != nil {
		return nil, fmt.Errorf("%s: list installed: %w", a.binary, err)
	}
	return splitNonEmptyLines(out), nil
}

func (a cliAdapter) Install(ctx context.Context, name string) error {
	_, err := runCLI(ctx, a.binary, a.installArgs(name)...)
	if err != nil {
		if looksLikeElevationFailure(err) {
			return ErrInteractiveElevation
		}
		return fmt.Errorf("%s: install %s: %w", a.binary, name, err)
	}
	return nil
}

func (a cliAdapter) Uninstall(ctx context.Context, name string) error {
	_, err := runCLI(ctx, a.binary, a.uninstallArgs(name)...)
	if err != nil {
		return fmt.Errorf("%s: uninstall %s: %w", a.binary, name, err)
	}
	return nil
}

// UpdateAll runs this manager's upgrade-everything invocation. Adapters
// with no such concept (Homebrew taps have no versions to upgrade) leave
// updateAllArgs nil and this is a no-op.
func (a cliAdapter) UpdateAll(ctx context.Context) error {
	if len(a.updateAllArgs) == 0 {
		return nil
	}
	_, err := runCLI(ctx, a.binary, a.updateAllArgs...)
	if err != nil {
		return fmt.Errorf("%s: update all: %w", a.binary, err)
	}
	return nil
}

func runCLI(ctx context.Context, binary string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return stdout.String(), fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return stdout.String(), err
	}
	return stdout.String(), nil
}

func splitNonEmptyLines(s string) []string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// looksLikeElevationFailure heuristically detects the error text password-
// prompting installers (chiefly Homebrew casks) emit when run
// non-interactively, so the caller can defer rather than fail the tick.
func looksLikeElevationFailure(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"sudo", "password", "administrator privileges", "permission denied"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
