package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tether-sh/tether/internal/crypto"
	"github.com/tether-sh/tether/internal/gitstore"
	"github.com/tether-sh/tether/pkg/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create ~/.tether, generate a machine identity, and clone the content store",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().String("remote", "", "git remote URL of the shared content store")
	initCmd.Flags().String("passphrase", "", "passphrase to wrap the new symmetric key (prompted if omitted)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	remote, _ := cmd.Flags().GetString("remote")
	passphrase, _ := cmd.Flags().GetString("passphrase")
	if remote == "" {
		return fmt.Errorf("--remote is required")
	}
	if passphrase == "" {
		p, err := promptPassphrase("Choose a passphrase to protect this machine's key: ")
		if err != nil {
			return err
		}
		passphrase = p
	}

	home, err := config.EnsureTetherHome()
	if err != nil {
		return err
	}

	if _, err := os.Stat(homeIdentityPath(home)); err == nil {
		return fmt.Errorf("already initialized: %s exists", homeIdentityPath(home))
	}

	id, key, err := crypto.NewMachineIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("generate machine identity: %w", err)
	}
	if err := crypto.SaveMachineIdentity(home, id); err != nil {
		return fmt.Errorf("save machine identity: %w", err)
	}
	if err := crypto.SaveCachedKey(home, key); err != nil {
		return fmt.Errorf("cache unlocked key: %w", err)
	}

	syncDir, err := config.SyncDir()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if _, err := gitstore.Clone(ctx, remote, syncDir); err != nil {
		return fmt.Errorf("clone content store: %w", err)
	}

	cfg := config.Default()
	cfg.RemoteURL = remote
	cfg.Profiles["dev"] = config.Profile{}
	if err := config.SaveConfig(&cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	color.Green("Initialized tether at %s (machine %s)", home, id.MachineID)
	fmt.Println("Run `tether sync` to run a reconciliation tick, or `tether daemon` to run continuously.")
	return nil
}

func homeIdentityPath(home string) string {
	return home + "/identity"
}
