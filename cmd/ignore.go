package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tether-sh/tether/internal/crypto"
	"github.com/tether-sh/tether/internal/state"
	"github.com/tether-sh/tether/pkg/config"
)

var ignoreCmd = &cobra.Command{
	Use:   "ignore",
	Short: "Exclude a tracked path from this machine's reconciliation",
}

var ignoreDotfileCmd = &cobra.Command{
	Use:   "dotfile <path>",
	Short: "Stop applying remote changes to a dotfile on this machine",
	Args:  cobra.ExactArgs(1),
	RunE:  runIgnoreDotfile,
}

var ignoreProjectConfigCmd = &cobra.Command{
	Use:   "project-config <normalized-url> <path>",
	Short: "Stop applying remote changes to one file inside a tracked project's config tree",
	Args:  cobra.ExactArgs(2),
	RunE:  runIgnoreProjectConfig,
}

func init() {
	ignoreCmd.AddCommand(ignoreDotfileCmd, ignoreProjectConfigCmd)
	rootCmd.AddCommand(ignoreCmd)
}

func loadThisMachineState(home string) (*state.MachineState, string, error) {
	id, err := crypto.LoadMachineIdentity(home)
	if err != nil {
		return nil, "", fmt.Errorf("load machine identity: %w", err)
	}
	syncDir, err := config.SyncDir()
	if err != nil {
		return nil, "", err
	}
	ms, err := state.LoadMachineState(syncDir, id.MachineID, "", "")
	if err != nil {
		return nil, "", fmt.Errorf("load machine state: %w", err)
	}
	return ms, syncDir, nil
}

func runIgnoreDotfile(cmd *cobra.Command, args []string) error {
	relPath := args[0]
	_, home, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	ms, syncDir, err := loadThisMachineState(home)
	if err != nil {
		return err
	}
	for _, existing := range ms.IgnoredDotfiles {
		if existing == relPath {
			fmt.Printf("%s is already ignored\n", relPath)
			return nil
		}
	}
	ms.IgnoredDotfiles = append(ms.IgnoredDotfiles, relPath)
	if err := state.SaveMachineState(syncDir, ms); err != nil {
		return fmt.Errorf("save machine state: %w", err)
	}
	color.Green("ignoring %s on this machine", relPath)
	return nil
}

func runIgnoreProjectConfig(cmd *cobra.Command, args []string) error {
	normalizedURL, relPath := args[0], args[1]
	_, home, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	ms, syncDir, err := loadThisMachineState(home)
	if err != nil {
		return err
	}
	if ms.IgnoredProjectConfigs == nil {
		ms.IgnoredProjectConfigs = map[string][]string{}
	}
	for _, existing := range ms.IgnoredProjectConfigs[normalizedURL] {
		if existing == relPath {
			fmt.Printf("%s (%s) is already ignored\n", relPath, normalizedURL)
			return nil
		}
	}
	ms.IgnoredProjectConfigs[normalizedURL] = append(ms.IgnoredProjectConfigs[normalizedURL], relPath)
	if err := state.SaveMachineState(syncDir, ms); err != nil {
		return fmt.Errorf("save machine state: %w", err)
	}
	color.Green("ignoring %s under project %s on this machine", relPath, normalizedURL)
	return nil
}
