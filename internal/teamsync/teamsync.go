// Package teamsync layers zero or more named team syncs on top of the
// personal sync tick. Each team gets its own clone under
// ~/.tether/teams/<name>/sync/, its own MachineState/union namespace
// (via a distinct gitstore.Store), and its own profile — but no new
// phase sequence: a team tick is the exact same sixteen-phase
// syncengine.Engine run again, parameterized by a different repo root.
package teamsync

import (
	"context"
	"fmt"
	"sort"

	"github.com/tether-sh/tether/internal/gitstore"
	"github.com/tether-sh/tether/internal/packages"
	"github.com/tether-sh/tether/internal/syncengine"
	"github.com/tether-sh/tether/pkg/config"
	"github.com/tether-sh/tether/pkg/logger"
)

// Result pairs a team name with its tick's outcome.
type Result struct {
	Team   string
	Report *syncengine.Report
	Err    error
}

// Runner runs the personal engine's tick and then every enabled team's
// tick in a fixed (sorted-by-name) order, so a multi-team tick is
// reproducible across runs for the same config.
type Runner struct {
	Personal *syncengine.Engine

	cfg        *config.Config
	tetherHome string
	managers   *packages.Registry
	notifier   syncengine.Notifier
	machineID  string
	hostname   string
	osVersion  string
	passphrase string
	scanSecrets bool
}

// NewRunner builds a Runner from the already-constructed personal engine
// plus the shared fields every team engine needs (machine identity,
// package registry, notifier). The team engines are opened lazily by
// RunAll, since opening a clone that was never cloned is itself a
// reportable error per team rather than a fatal Runner-construction error.
func NewRunner(personal *syncengine.Engine, cfg *config.Config) *Runner {
	return &Runner{
		Personal:    personal,
		cfg:         cfg,
		tetherHome:  personal.TetherHome,
		managers:    personal.Managers,
		notifier:    personal.Notifier,
		machineID:   personal.MachineID,
		hostname:    personal.Hostname,
		osVersion:   personal.OSVersion,
		passphrase:  personal.Passphrase,
		scanSecrets: personal.ScanSecrets,
	}
}

// RunAll runs the personal tick, then each enabled team's tick in
// name-sorted order. A team clone that fails to open, or whose tick
// fails, is recorded in its Result and does not prevent the remaining
// teams (or the personal sync) from being reported — team layering is
// additive, so one broken team shouldn't block the personal union.
func (r *Runner) RunAll(ctx context.Context, dryRun bool) []Result {
	results := make([]Result, 0, 1+len(r.cfg.Teams))

	report, err := r.Personal.RunSync(ctx, dryRun)
	results = append(results, Result{Team: "", Report: report, Err: err})
	if err != nil {
		logger.Error("personal sync tick failed", logger.Err(err))
	}

	if !r.cfg.Features.TeamLayering || len(r.cfg.Teams) == 0 {
		return results
	}

	names := make([]string, 0, len(r.cfg.Teams))
	for name := range r.cfg.Teams {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		team := r.cfg.Teams[name]
		engine, err := r.buildTeamEngine(name, team)
		if err != nil {
			logger.Error("open team clone", logger.String("team", name), logger.Err(err))
			results = append(results, Result{Team: name, Err: fmt.Errorf("open team %q clone: %w", name, err)})
			continue
		}
		report, err := engine.RunSync(ctx, dryRun)
		if err != nil {
			logger.Error("team sync tick failed", logger.String("team", name), logger.Err(err))
		}
		results = append(results, Result{Team: name, Report: report, Err: err})
	}
	return results
}

// buildTeamEngine opens the team's clone directory and constructs an
// Engine pointed at it, reusing this team's configured profile from the
// main Config so phase 4-9's profile lookups resolve the same way the
// personal engine's do.
func (r *Runner) buildTeamEngine(name string, team config.TeamConfig) (*syncengine.Engine, error) {
	dir, err := config.TeamDir(name)
	if err != nil {
		return nil, err
	}
	store, err := gitstore.Open(dir)
	if err != nil {
		return nil, err
	}
	return &syncengine.Engine{
		Config:      r.cfg,
		ProfileName: team.Profile,
		TetherHome:  r.tetherHome,
		Store:       store,
		Layout:      gitstore.NewLayout(dir),
		Managers:    r.managers,
		Notifier:    r.notifier,
		MachineID:   r.machineID,
		Hostname:    r.hostname,
		OSVersion:   r.osVersion,
		Passphrase:  r.passphrase,
		ScanSecrets: r.scanSecrets,
	}, nil
}
