package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tether-sh/tether/internal/conflict"
	"github.com/tether-sh/tether/internal/crypto"
	"github.com/tether-sh/tether/internal/gitstore"
	"github.com/tether-sh/tether/internal/state"
	"github.com/tether-sh/tether/pkg/config"
	"github.com/tether-sh/tether/pkg/fingerprint"
	"github.com/tether-sh/tether/pkg/safeio"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List and resolve pending true conflicts",
}

var conflictsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every unresolved conflict",
	RunE:  runConflictsList,
}

var conflictsDiffCmd = &cobra.Command{
	Use:   "diff <path>",
	Short: "Show the local/remote diff for one conflicted path",
	Args:  cobra.ExactArgs(1),
	RunE:  runConflictsDiff,
}

var conflictsResolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Resolve a conflicted path by keeping local, taking remote, or launching a merge tool",
	Args:  cobra.ExactArgs(1),
	RunE:  runConflictsResolve,
}

func init() {
	conflictsResolveCmd.Flags().Bool("keep-local", false, "write the local copy back as the synced content")
	conflictsResolveCmd.Flags().Bool("use-remote", false, "overwrite the local copy with the remote content")
	conflictsResolveCmd.Flags().String("merge-tool", "", "launch an allowlisted external merge tool (vimdiff, meld, opendiff, kdiff3, p4merge, bc, code, diffuse)")
	conflictsResolveCmd.Flags().String("passphrase", "", "unlock passphrase, if the key isn't already cached")
	conflictsDiffCmd.Flags().String("passphrase", "", "unlock passphrase, if the key isn't already cached")

	conflictsCmd.AddCommand(conflictsListCmd, conflictsDiffCmd, conflictsResolveCmd)
	rootCmd.AddCommand(conflictsCmd)
}

func runConflictsList(cmd *cobra.Command, args []string) error {
	_, home, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	store, err := conflict.Open(home)
	if err != nil {
		return err
	}
	pending := store.List()
	if len(pending) == 0 {
		fmt.Println("no pending conflicts")
		return nil
	}
	for _, c := range pending {
		fmt.Printf("%s  (detected %s)\n", c.Path, c.DetectedAt.Format(time.RFC3339))
		fmt.Printf("  local:  %s\n", c.LocalFP)
		fmt.Printf("  remote: %s\n", c.RemoteFP)
	}
	return nil
}

func runConflictsDiff(cmd *cobra.Command, args []string) error {
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
	for _, line := range conflict.Diff(remote, local) {
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

// conflictSides resolves the on-disk paths a conflicted dotfile maps to:
// the plaintext local copy under the user's home directory, and the
// encrypted blob tracked in the content store's clone.
type conflictSides struct {
	localPath  string
	remotePath string
}

// loadConflictSides decrypts both sides of a pending conflict at relPath,
// returning the local plaintext, the remote plaintext, and the resolved
// filesystem paths needed to write a resolution back out.
func loadConflictSides(home, relPath, passphrase string) (local, remote []byte, sides conflictSides, err error) {
	syncDir, err := config.SyncDir()
	if err != nil {
		return nil, nil, sides, err
	}
	layout := gitstore.NewLayout(syncDir)
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, nil, sides, err
	}
	sides = conflictSides{
		localPath:  filepath.Join(homeDir, relPath),
		remotePath: layout.DotfileBlob(relPath),
	}

	key, err := resolveKey(home, passphrase)
	if err != nil {
		return nil, nil, sides, err
	}
	remoteBlob, err := os.ReadFile(sides.remotePath) // #nosec G304 -- path built from Layout, not user input
	if err != nil {
		return nil, nil, sides, fmt.Errorf("read remote blob: %w", err)
	}
	remote, err = crypto.Decrypt(key, remoteBlob)
	if err != nil {
		return nil, nil, sides, fmt.Errorf("decrypt remote blob: %w", err)
	}
	local, err = os.ReadFile(sides.localPath) // #nosec G304 -- path built from the user's own home directory
	if err != nil {
		return nil, nil, sides, fmt.Errorf("read local file: %w", err)
	}
	return local, remote, sides, nil
}

func runConflictsResolve(cmd *cobra.Command, args []string) error {
	relPath := args[0]
	keepLocal, _ := cmd.Flags().GetBool("keep-local")
	useRemote, _ := cmd.Flags().GetBool("use-remote")
	mergeTool, _ := cmd.Flags().GetString("merge-tool")
	passphrase, _ := cmd.Flags().GetString("passphrase")

	chosen := 0
	for _, set := range []bool{keepLocal, useRemote, mergeTool != ""} {
		if set {
			chosen++
		}
	}
	if chosen != 1 {
		return fmt.Errorf("pass exactly one of --keep-local, --use-remote, --merge-tool")
	}

	_, home, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	store, err := conflict.Open(home)
	if err != nil {
		return err
	}
	if _, ok := store.Get(relPath); !ok {
		return fmt.Errorf("no pending conflict recorded for %q", relPath)
	}

	key, err := resolveKey(home, passphrase)
	if err != nil {
		return err
	}
	local, remote, sides, err := loadConflictSides(home, relPath, passphrase)
	if err != nil {
		return err
	}

	var resolvedFP string
	switch {
	case keepLocal:
		blob, err := crypto.Encrypt(key, local)
		if err != nil {
			return fmt.Errorf("encrypt local content: %w", err)
		}
		if err := safeio.WriteFileAtomic(sides.remotePath, blob, 0o644); err != nil {
			return fmt.Errorf("write remote blob: %w", err)
		}
		resolvedFP = fingerprint.Of(local)

	case useRemote:
		if err := safeio.WriteFileAtomic(sides.localPath, remote, 0o644); err != nil {
			return fmt.Errorf("write local file: %w", err)
		}
		resolvedFP = fingerprint.Of(remote)

	default: // merge-tool
		if err := resolveWithMergeTool(mergeTool, sides, local, remote); err != nil {
			return err
		}
		merged, err := os.ReadFile(sides.localPath) // #nosec G304 -- path is the caller's own resolved local file
		if err != nil {
			return fmt.Errorf("read merged file: %w", err)
		}
		blob, err := crypto.Encrypt(key, merged)
		if err != nil {
			return fmt.Errorf("encrypt merged content: %w", err)
		}
		if err := safeio.WriteFileAtomic(sides.remotePath, blob, 0o644); err != nil {
			return fmt.Errorf("write remote blob: %w", err)
		}
		resolvedFP = fingerprint.Of(merged)
	}

	store.Clear(relPath)
	if err := store.Save(); err != nil {
		return fmt.Errorf("save conflict store: %w", err)
	}

	id, err := crypto.LoadMachineIdentity(home)
	if err != nil {
		return fmt.Errorf("load machine identity: %w", err)
	}
	syncState, err := state.LoadSyncState(home, id.MachineID)
	if err != nil {
		return fmt.Errorf("load sync state: %w", err)
	}
	syncState.Files[relPath] = state.FileState{FP: resolvedFP, LastModified: time.Now().UTC(), Synced: true}
	if err := state.SaveSyncState(home, syncState); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}

	color.Green("resolved %s; run `tether sync` to push the change", relPath)
	return nil
}

// resolveWithMergeTool writes scratch copies of both sides and launches
// the allowlisted tool with the local path as the merge target, matching
// the {local}/{remote}/{merged} placeholder convention every allowlisted
// tool understands.
func resolveWithMergeTool(toolCommand string, sides conflictSides, local, remote []byte) error {
	dir, err := os.MkdirTemp("", "tether-merge-*")
	if err != nil {
		return fmt.Errorf("create merge scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	localTmp := filepath.Join(dir, "local")
	remoteTmp := filepath.Join(dir, "remote")

	if err := os.WriteFile(localTmp, local, 0o600); err != nil {
		return fmt.Errorf("write local scratch copy: %w", err)
	}
	if err := os.WriteFile(remoteTmp, remote, 0o600); err != nil {
		return fmt.Errorf("write remote scratch copy: %w", err)
	}
	if err := os.WriteFile(sides.localPath, local, 0o644); err != nil {
		return fmt.Errorf("seed merge target with local content: %w", err)
	}

	return conflict.LaunchMerge(context.Background(), toolCommand, []string{"{local}", "{remote}", "{merged}"}, localTmp, remoteTmp, sides.localPath)
}
