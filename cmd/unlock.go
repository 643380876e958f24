package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tether-sh/tether/internal/crypto"
	"github.com/tether-sh/tether/pkg/config"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the symmetric key and cache it for unattended sync ticks",
	RunE:  runUnlock,
}

func init() {
	unlockCmd.Flags().String("passphrase", "", "passphrase (prompted if omitted)")
	rootCmd.AddCommand(unlockCmd)
}

func runUnlock(cmd *cobra.Command, args []string) error {
	passphrase, _ := cmd.Flags().GetString("passphrase")
	if passphrase == "" {
		p, err := promptPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		passphrase = p
	}

	home, err := config.GetTetherHome()
	if err != nil {
		return err
	}
	id, err := crypto.LoadMachineIdentity(home)
	if err != nil {
		return fmt.Errorf("load machine identity: %w", err)
	}
	key, err := id.Unlock(passphrase)
	if err != nil {
		return err
	}
	if err := crypto.SaveCachedKey(home, key); err != nil {
		return fmt.Errorf("cache unlocked key: %w", err)
	}

	color.Green("Unlocked. Key cached for this machine's scheduled ticks.")
	return nil
}
