package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tether-sh/tether/internal/packages"
	"github.com/tether-sh/tether/pkg/buildinfo"
	"github.com/tether-sh/tether/pkg/config"
	"github.com/tether-sh/tether/pkg/exitcode"
	"github.com/tether-sh/tether/pkg/logger"
	"github.com/tether-sh/tether/pkg/notify"
)

var rootCmd = &cobra.Command{
	Use:     "tether",
	Short:   "Content-addressed dotfile, package, and secret sync",
	Version: buildinfo.BinaryVersion,
	Long: `tether keeps dotfiles, tracked config directories, package-manager
manifests, and collaborator secrets synchronized across machines through
a single git-backed content store.

Examples:
   tether init            # create ~/.tether and the local clone
   tether sync             # run one reconciliation tick
   tether sync --dry-run    # preview what a tick would change
   tether daemon            # run the background agent loop
   tether conflicts list     # list pending three-way conflicts`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initializeLogger(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.SetVersionTemplate("tether {{.Version}}\n")
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", logger.Err(err))
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor classifies a top-level command error into one of
// pkg/exitcode's standardized codes. Most command errors are wrapped with
// fmt.Errorf rather than a typed sentinel, so this is a best-effort
// classification by what the underlying condition actually was, not an
// exhaustive type switch.
func exitCodeFor(err error) int {
	switch {
	case strings.Contains(err.Error(), "not initialized"):
		return exitcode.ConfigError
	case os.IsNotExist(err) || os.IsPermission(err):
		return exitcode.FileSystemError
	default:
		return exitcode.GeneralError
	}
}

func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	interactive := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	color.NoColor = noColor || !interactive

	var level logger.Level
	switch strings.ToLower(logLevelStr) {
	case "trace":
		level = logger.TraceLevel
	case "debug":
		level = logger.DebugLevel
	case "warn":
		level = logger.WarnLevel
	case "error":
		level = logger.ErrorLevel
	default:
		level = logger.InfoLevel
	}

	if err := logger.Initialize(logger.Config{
		Level:     level,
		UseColor:  !noColor && interactive,
		JSON:      jsonLogs,
		Component: "tether",
	}); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
}

// loadRuntimeConfig loads ~/.tether/config.toml, printing a friendly error
// (rather than a bare Go error) when it has never been initialized.
func loadRuntimeConfig() (*config.Config, string, error) {
	home, err := config.GetTetherHome()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(home); os.IsNotExist(err) {
		return nil, "", fmt.Errorf("not initialized: run `tether init` first")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, "", err
	}
	return cfg, home, nil
}

func defaultManagers() *packages.Registry {
	return packages.DefaultRegistry()
}

func defaultNotifier() notify.Notifier {
	return notify.New()
}
