package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tether-sh/tether/internal/conflict"
	"github.com/tether-sh/tether/internal/scheduler"
	"github.com/tether-sh/tether/internal/teamsync"
	"github.com/tether-sh/tether/pkg/config"
	"github.com/tether-sh/tether/pkg/logger"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background sync agent",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the agent loop (ticks on an interval, plus SIGHUP for an immediate tick)",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal a running daemon to exit",
	RunE:  runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the daemon's recorded PID is alive",
	RunE:  runDaemonStatus,
}

func init() {
	daemonStartCmd.Flags().Bool("foreground", false, "run in the foreground instead of detaching (service managers pass this)")
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonStatusCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	cfg, home, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	profileName, err := resolveProfileName(cfg, "")
	if err != nil {
		return err
	}

	pidFile := scheduler.NewPIDFile(home)
	if err := pidFile.Write(); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer func() { _ = pidFile.Remove() }()

	engine, err := buildPersonalEngine(cfg, home, profileName, "", true)
	if err != nil {
		return err
	}
	runner := teamsync.NewRunner(engine, cfg)

	var metrics *scheduler.Metrics
	if addr := os.Getenv("TETHER_METRICS_ADDR"); addr != "" {
		metrics = scheduler.NewMetrics()
		logger.Info("metrics exposition enabled", logger.String("addr", addr))
	}

	agent := &scheduler.Agent{
		Interval: time.Duration(cfg.Sync.IntervalSeconds) * time.Second,
		Metrics:  metrics,
		Tick: func(ctx context.Context) error {
			results := runner.RunAll(ctx, false)
			for _, r := range results {
				if r.Err != nil {
					logger.Error("tick failed", logger.String("team", r.Team), logger.Err(r.Err))
				}
			}
			if metrics != nil {
				if store, err := conflict.Open(home); err == nil {
					metrics.SetConflictsPending(len(store.List()))
				}
			}
			return nil
		},
		Upgrade: func(ctx context.Context) error {
			return upgradeAllManagers(ctx, cfg)
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		cancel()
	}()

	if metrics != nil {
		addr := os.Getenv("TETHER_METRICS_ADDR")
		go func() {
			if err := metrics.Serve(ctx, addr); err != nil {
				logger.Error("metrics server stopped", logger.Err(err))
			}
		}()
	}

	logger.Info("daemon starting", logger.String("profile", profileName))
	return agent.Run(ctx)
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	_, home, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	pid, err := scheduler.NewPIDFile(home).Read()
	if err != nil {
		return err
	}
	if pid == 0 {
		return fmt.Errorf("no daemon pid file found")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon (pid %d): %w", pid, err)
	}
	fmt.Printf("sent SIGTERM to pid %d\n", pid)
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	_, home, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	pid, err := scheduler.NewPIDFile(home).Read()
	if err != nil {
		return err
	}
	if pid == 0 || !scheduler.IsLive(pid) {
		color.Yellow("daemon not running")
		return nil
	}
	color.Green("daemon running (pid %d)", pid)
	return nil
}

func upgradeAllManagers(ctx context.Context, cfg *config.Config) error {
	reg := defaultManagers()
	for _, mgr := range reg.All() {
		if !mgr.Available(ctx) {
			continue
		}
		if err := mgr.UpdateAll(ctx); err != nil {
			logger.Error("update-all failed", logger.String("manager", mgr.Key()), logger.Err(err))
		}
	}
	return nil
}
