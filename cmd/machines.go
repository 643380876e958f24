package cmd

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tether-sh/tether/internal/state"
	"github.com/tether-sh/tether/pkg/config"
)

var machinesCmd = &cobra.Command{
	Use:   "machines",
	Short: "List and retire machines tracked in the content store",
}

var machinesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every machine with a recorded state file",
	RunE:  runMachinesList,
}

var machinesRemoveCmd = &cobra.Command{
	Use:   "remove <machine-id>",
	Short: "Delete a retired machine's state file from the content store",
	Args:  cobra.ExactArgs(1),
	RunE:  runMachinesRemove,
}

func init() {
	machinesCmd.AddCommand(machinesListCmd, machinesRemoveCmd)
	rootCmd.AddCommand(machinesCmd)
}

func runMachinesList(cmd *cobra.Command, args []string) error {
	if _, _, err := loadRuntimeConfig(); err != nil {
		return err
	}
	syncDir, err := config.SyncDir()
	if err != nil {
		return err
	}
	machines, err := state.ListMachineStates(syncDir)
	if err != nil {
		return fmt.Errorf("list machine states: %w", err)
	}
	sort.Slice(machines, func(i, j int) bool { return machines[i].Hostname < machines[j].Hostname })

	for _, m := range machines {
		lastSync := "never"
		if !m.LastSync.IsZero() {
			lastSync = m.LastSync.Format("2006-01-02 15:04:05 MST")
		}
		fmt.Printf("%s  %s  (%s)  last sync: %s\n", m.MachineID, m.Hostname, m.OSVersion, lastSync)
	}
	return nil
}

func runMachinesRemove(cmd *cobra.Command, args []string) error {
	machineID := args[0]
	if _, _, err := loadRuntimeConfig(); err != nil {
		return err
	}
	syncDir, err := config.SyncDir()
	if err != nil {
		return err
	}
	if err := state.RemoveMachineState(syncDir, machineID); err != nil {
		return fmt.Errorf("remove machine state: %w", err)
	}
	color.Green("removed machine %s; run `tether sync` to commit and push the removal", machineID)
	return nil
}
