package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tether-sh/tether/internal/gitstore"
	"github.com/tether-sh/tether/pkg/config"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the content store's recent commit history",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of commits to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if _, _, err := loadRuntimeConfig(); err != nil {
		return err
	}
	syncDir, err := config.SyncDir()
	if err != nil {
		return err
	}
	store, err := gitstore.Open(syncDir)
	if err != nil {
		return fmt.Errorf("open content store clone: %w", err)
	}
	messages, err := store.Log(limit)
	if err != nil {
		return fmt.Errorf("read commit log: %w", err)
	}
	for _, m := range messages {
		fmt.Println(m)
	}
	return nil
}
