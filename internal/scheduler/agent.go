// Package scheduler implements the long-running background agent: its
// tick loop, signal handling, self-update detection, daily upgrade
// gate, PID-file lifecycle, and OS service installers.
package scheduler

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const upgradeInterval = 24 * time.Hour

// TickFunc runs one full sync-engine reconciliation tick.
type TickFunc func(ctx context.Context) error

// UpgradeFunc runs update_all() across every enabled package manager.
type UpgradeFunc func(ctx context.Context) error

// Agent drives the periodic tick loop described in spec §5: a ticker
// tick, an immediate tick on SIGHUP, graceful exit on SIGTERM/SIGINT,
// a binary-mtime self-update check before each tick, and a 24-hour
// upgrade gate.
type Agent struct {
	Interval    time.Duration
	Tick        TickFunc
	Upgrade     UpgradeFunc
	LastUpgrade time.Time

	// ExecutablePath is the agent's own binary, whose mtime is checked
	// before every tick. Defaults to os.Executable() if empty.
	ExecutablePath string

	// Metrics, when non-nil, records tick counts/duration/errors. Left
	// nil, the agent loop runs with no observability overhead.
	Metrics *Metrics

	startMTime time.Time
}

// ErrSelfUpdateDetected is returned by Run when the agent's own binary
// changed on disk since the process started, signaling the caller's OS
// service manager should respawn the new version.
var ErrSelfUpdateDetected = selfUpdateDetected{}

type selfUpdateDetected struct{}

func (selfUpdateDetected) Error() string {
	return "agent binary changed on disk; exiting for respawn"
}

// Run blocks until ctx is canceled, a TERM/INT signal arrives, or a
// self-update is detected. It returns nil on a clean signal-driven
// shutdown, ErrSelfUpdateDetected on self-update, or the first fatal
// tick error.
func (a *Agent) Run(ctx context.Context) error {
	path := a.ExecutablePath
	if path == "" {
		if resolved, err := os.Executable(); err == nil {
			path = resolved
		}
	}
	if info, err := os.Stat(path); err == nil {
		a.startMTime = info.ModTime()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()

	for {
		if err := a.runOneCycle(ctx, path); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				continue
			default:
				return nil
			}
		case <-ticker.C:
			continue
		}
	}
}

// runOneCycle checks for a self-update, then runs a sync tick and,
// if 24 hours have elapsed since the last upgrade, the upgrade step.
func (a *Agent) runOneCycle(ctx context.Context, executablePath string) error {
	if a.selfUpdated(executablePath) {
		return ErrSelfUpdateDetected
	}

	if a.Tick != nil {
		start := time.Now()
		err := a.Tick(ctx)
		a.Metrics.observeTick(time.Since(start), err)
		if err != nil {
			return err
		}
	}

	if a.Upgrade != nil && time.Since(a.LastUpgrade) >= upgradeInterval {
		if err := a.Upgrade(ctx); err != nil {
			return err
		}
		a.LastUpgrade = time.Now()
	}
	return nil
}

// selfUpdated reports whether the binary at path has a newer mtime than
// the one recorded when Run started.
func (a *Agent) selfUpdated(path string) bool {
	if path == "" || a.startMTime.IsZero() {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.ModTime().After(a.startMTime)
}
