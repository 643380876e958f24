// Package syncengine implements the reconciliation engine: the strict
// sixteen-phase sequence that pulls, applies, exports, and pushes one
// sync tick against a single content-store clone.
package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/tether-sh/tether/internal/conflict"
	"github.com/tether-sh/tether/internal/gitstore"
	"github.com/tether-sh/tether/internal/packages"
	"github.com/tether-sh/tether/internal/state"
	"github.com/tether-sh/tether/pkg/config"
	"github.com/tether-sh/tether/pkg/logger"
)

// maxPushRetries bounds phase 15's pull-rebase-push retry loop on a
// non-fast-forward push, per spec §5's "up to 3 retries per tick".
const maxPushRetries = 3

// Warning is a non-fatal, per-file or per-package finding surfaced from a
// phase that does not abort the tick.
type Warning struct {
	Phase   int
	Path    string
	Message string
}

func (w Warning) String() string {
	if w.Path == "" {
		return fmt.Sprintf("phase %d: %s", w.Phase, w.Message)
	}
	return fmt.Sprintf("phase %d: %s: %s", w.Phase, w.Path, w.Message)
}

// Report summarizes one completed (or aborted) tick for the caller —
// the scheduler logs it at Info, `tether sync` prints it.
type Report struct {
	DryRun        bool
	Warnings      []Warning
	NewConflicts  int
	CommitHash    string
	PackagesAdded map[string][]string
	Completed     bool // true only if phase 16 ran
}

// Notifier is the narrow surface syncengine needs from pkg/notify,
// kept as an interface so tests never shell out to a real OS notifier.
type Notifier interface {
	Notify(title, body string) error
}

// Engine runs the phase sequence against one clone. A second Engine,
// pointed at a different repo root, is how internal/teamsync and collab
// syncs reuse the exact same phase-ordered machinery.
type Engine struct {
	Config      *config.Config
	ProfileName string
	TetherHome  string

	Store  *gitstore.Store
	Layout *gitstore.Layout

	Managers *packages.Registry
	Notifier Notifier

	MachineID string
	Hostname  string
	OSVersion string

	// Passphrase unlocks the symmetric key when no plaintext cache
	// exists yet (first run after a fresh clone). Agent-mode callers
	// leave this empty and rely solely on the cache.
	Passphrase string

	// ScanSecrets enables phase 7's advisory secret-scan warning.
	ScanSecrets bool
}

// tickContext threads per-tick mutable state through the phase methods,
// so no phase reaches for a package-level global.
type tickContext struct {
	ctx    context.Context
	dryRun bool

	key []byte // unlocked symmetric key, phase 1 onward

	syncState    *state.SyncState
	machineState *state.MachineState
	conflicts    *conflict.Store

	warnings     []Warning
	newConflicts int
	commitHash   string

	packagesAdded map[string][]string
}

func (t *tickContext) warn(phase int, path, format string, args ...any) {
	t.warnings = append(t.warnings, Warning{Phase: phase, Path: path, Message: fmt.Sprintf(format, args...)})
}

// RunSync executes the full sixteen-phase sequence once. dryRun suppresses
// phase 15's push (and phase 7/9/12/13's writes into the clone) while
// still computing and reporting what would change.
func (e *Engine) RunSync(ctx context.Context, dryRun bool) (*Report, error) {
	tc := &tickContext{ctx: ctx, dryRun: dryRun, packagesAdded: map[string][]string{}}

	phases := []struct {
		n    int
		name string
		run  func(*tickContext) error
	}{
		{1, "unlock", e.phase1Unlock},
		{2, "pull", e.phase2Pull},
		{3, "self-config sync", e.phase3SelfConfigSync},
		{4, "apply remote files", e.phase4ApplyRemoteFiles},
		{5, "apply remote config directories", e.phase5ApplyRemoteConfigs},
		{6, "apply remote project configs", e.phase6ApplyRemoteProjectConfigs},
		{7, "export local dotfiles", e.phase7ExportDotfiles},
		{8, "discover sourced directories", e.phase8DiscoverSourcedDirs},
		{9, "export directories and project configs", e.phase9ExportDirectories},
		{10, "build machine state", e.phase10BuildMachineState},
		{11, "import missing packages", e.phase11ImportMissingPackages},
		{12, "export package manifests", e.phase12ExportManifests},
		{13, "write machine state", e.phase13WriteMachineState},
		{14, "self-config export", e.phase14SelfConfigExport},
		{15, "commit and push", e.phase15CommitAndPush},
		{16, "mark synced", e.phase16MarkSynced},
	}

	for _, p := range phases {
		select {
		case <-ctx.Done():
			return e.report(tc, false), ctx.Err()
		default:
		}
		logger.Debug("sync phase starting", logger.String("profile", e.ProfileName), logger.Int("phase", p.n), logger.String("name", p.name))
		if err := p.run(tc); err != nil {
			logger.Error("sync phase failed", logger.String("profile", e.ProfileName), logger.Int("phase", p.n), logger.Err(err))
			return e.report(tc, false), fmt.Errorf("phase %d (%s): %w", p.n, p.name, err)
		}
	}

	logger.Info("sync tick complete", logger.String("profile", e.ProfileName), logger.Int("warnings", len(tc.warnings)))
	return e.report(tc, true), nil
}

func (e *Engine) report(tc *tickContext, completed bool) *Report {
	return &Report{
		DryRun:        tc.dryRun,
		Warnings:      tc.warnings,
		NewConflicts:  tc.newConflicts,
		CommitHash:    tc.commitHash,
		PackagesAdded: tc.packagesAdded,
		Completed:     completed,
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
