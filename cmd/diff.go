package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tether-sh/tether/internal/conflict"
)

var diffCmd = &cobra.Command{
	Use:   "diff <path>",
	Short: "Show the local-vs-remote diff for a tracked dotfile, conflicted or not",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().String("passphrase", "", "unlock passphrase, if the key isn't already cached")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	relPath := args[0]
	passphrase, _ := cmd.Flags().GetString("passphrase")

	_, home, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	local, remote, _, err := loadConflictSides(home, relPath, passphrase)
	if err != nil {
		return err
	}

	lines := conflict.Diff(remote, local)
	if len(lines) == 0 {
		fmt.Println("no differences")
		return nil
	}
	for _, line := range lines {
		switch line.Op {
		case conflict.DiffAdd:
			color.Green("+ %s", line.Text)
		case conflict.DiffRemove:
			color.Red("- %s", line.Text)
		default:
			fmt.Printf("  %s\n", line.Text)
		}
	}
	return nil
}
