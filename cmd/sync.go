package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tether-sh/tether/internal/crypto"
	"github.com/tether-sh/tether/internal/gitstore"
	"github.com/tether-sh/tether/internal/syncengine"
	"github.com/tether-sh/tether/internal/teamsync"
	"github.com/tether-sh/tether/pkg/config"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation tick",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().Bool("dry-run", false, "compute and report changes without writing or pushing")
	syncCmd.Flags().String("profile", "", "profile to sync (defaults to the only configured profile)")
	syncCmd.Flags().String("passphrase", "", "unlock passphrase, if the key isn't already cached")
	syncCmd.Flags().Bool("scan-secrets", true, "warn on likely secrets in exported dotfiles")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	profileName, _ := cmd.Flags().GetString("profile")
	passphrase, _ := cmd.Flags().GetString("passphrase")
	scanSecrets, _ := cmd.Flags().GetBool("scan-secrets")

	cfg, home, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	profileName, err = resolveProfileName(cfg, profileName)
	if err != nil {
		return err
	}

	engine, err := buildPersonalEngine(cfg, home, profileName, passphrase, scanSecrets)
	if err != nil {
		return err
	}

	runner := teamsync.NewRunner(engine, cfg)
	results := runner.RunAll(context.Background(), dryRun)

	var failed bool
	for _, r := range results {
		label := "personal"
		if r.Team != "" {
			label = "team " + r.Team
		}
		if r.Err != nil {
			failed = true
			color.Red("%s: FAILED: %v", label, r.Err)
			continue
		}
		printSyncReport(label, r.Report)
	}
	if failed {
		return fmt.Errorf("one or more sync ticks failed")
	}
	return nil
}

func printSyncReport(label string, report *syncengine.Report) {
	if report == nil {
		return
	}
	suffix := ""
	if report.DryRun {
		suffix = " (dry-run)"
	}
	fmt.Printf("%s: synced%s", label, suffix)
	if report.CommitHash != "" {
		fmt.Printf(", commit %s", report.CommitHash[:min(8, len(report.CommitHash))])
	}
	if report.NewConflicts > 0 {
		color.Yellow(" — %d new conflict(s)", report.NewConflicts)
	}
	fmt.Println()
	for _, w := range report.Warnings {
		color.Yellow("  warning: %s", w.String())
	}
	for manager, names := range report.PackagesAdded {
		if len(names) > 0 {
			fmt.Printf("  %s: installed %v\n", manager, names)
		}
	}
}

func resolveProfileName(cfg *config.Config, requested string) (string, error) {
	if requested != "" {
		if _, ok := cfg.Profiles[requested]; !ok {
			return "", fmt.Errorf("no such profile %q", requested)
		}
		return requested, nil
	}
	if len(cfg.Profiles) == 1 {
		for name := range cfg.Profiles {
			return name, nil
		}
	}
	return "", fmt.Errorf("multiple profiles configured; pass --profile")
}

func buildPersonalEngine(cfg *config.Config, home, profileName, passphrase string, scanSecrets bool) (*syncengine.Engine, error) {
	syncDir, err := config.SyncDir()
	if err != nil {
		return nil, err
	}
	store, err := gitstore.Open(syncDir)
	if err != nil {
		return nil, fmt.Errorf("open content store clone: %w", err)
	}

	id, err := crypto.LoadMachineIdentity(home)
	if err != nil {
		return nil, fmt.Errorf("load machine identity: %w", err)
	}
	hostname, _ := os.Hostname()

	return &syncengine.Engine{
		Config:      cfg,
		ProfileName: profileName,
		TetherHome:  home,
		Store:       store,
		Layout:      gitstore.NewLayout(syncDir),
		Managers:    defaultManagers(),
		Notifier:    defaultNotifier(),
		MachineID:   id.MachineID,
		Hostname:    hostname,
		OSVersion:   runtime.GOOS,
		Passphrase:  passphrase,
		ScanSecrets: scanSecrets,
	}, nil
}
