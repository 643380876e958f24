package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// managerTitleCaser renders a manager key like "npm_global" as "Npm
// Global" for `packages list` output.
var managerTitleCaser = cases.Title(language.Und)

func managerDisplayName(key string) string {
	return managerTitleCaser.String(strings.ReplaceAll(key, "_", " "))
}

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "Inspect and operate the package-manager adapters directly",
}

var packagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every available manager and what it has installed",
	RunE:  runPackagesList,
}

var packagesInstallCmd = &cobra.Command{
	Use:   "install <manager> <name>",
	Short: "Install one package through a named manager",
	Args:  cobra.ExactArgs(2),
	RunE:  runPackagesInstall,
}

var packagesUninstallCmd = &cobra.Command{
	Use:   "uninstall <manager> <name>",
	Short: "Uninstall one package through a named manager",
	Args:  cobra.ExactArgs(2),
	RunE:  runPackagesUninstall,
}

func init() {
	packagesCmd.AddCommand(packagesListCmd, packagesInstallCmd, packagesUninstallCmd)
	rootCmd.AddCommand(packagesCmd)
}

func runPackagesList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	reg := defaultManagers()
	for _, mgr := range reg.All() {
		if !mgr.Available(ctx) {
			continue
		}
		names, err := mgr.ListInstalled(ctx)
		if err != nil {
			color.Yellow("%s: %v", mgr.Key(), err)
			continue
		}
		fmt.Printf("%s (%d installed)\n", managerDisplayName(mgr.Key()), len(names))
		for _, n := range names {
			fmt.Printf("  %s\n", n)
		}
	}
	return nil
}

func runPackagesInstall(cmd *cobra.Command, args []string) error {
	managerKey, name := args[0], args[1]
	mgr, ok := defaultManagers().Get(managerKey)
	if !ok {
		return fmt.Errorf("no such manager %q", managerKey)
	}
	if err := mgr.Install(context.Background(), name); err != nil {
		return fmt.Errorf("%s: install %s: %w", managerKey, name, err)
	}
	color.Green("installed %s via %s", name, managerKey)
	return nil
}

func runPackagesUninstall(cmd *cobra.Command, args []string) error {
	managerKey, name := args[0], args[1]
	mgr, ok := defaultManagers().Get(managerKey)
	if !ok {
		return fmt.Errorf("no such manager %q", managerKey)
	}
	if err := mgr.Uninstall(context.Background(), name); err != nil {
		return fmt.Errorf("%s: uninstall %s: %w", managerKey, name, err)
	}
	color.Green("uninstalled %s via %s", name, managerKey)
	return nil
}
