package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tether-sh/tether/internal/collab"
	"github.com/tether-sh/tether/internal/crypto"
	"github.com/tether-sh/tether/internal/gitstore"
	"github.com/tether-sh/tether/pkg/config"
)

var collabCmd = &cobra.Command{
	Use:   "collab",
	Short: "Manage the secondary, collaborator-shared secrets repo",
}

var collabRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Recompute the collaborator union, report drift, and re-encrypt secrets to the current recipient set",
	RunE:  runCollabRefresh,
}

var collabJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Verify collaborator status and enroll this machine's public key as a recipient",
	RunE:  runCollabJoin,
}

func init() {
	collabJoinCmd.Flags().String("username", "", "this collaborator's source-host username (required)")
	collabJoinCmd.Flags().String("token", "", "source-host API token (defaults to $GITHUB_TOKEN)")
	collabJoinCmd.Flags().String("passphrase", "", "passphrase protecting this machine's collab identity (prompted if omitted)")

	collabCmd.AddCommand(collabRefreshCmd, collabJoinCmd)
	rootCmd.AddCommand(collabCmd)
}

func openOrCloneCollabRepo(ctx context.Context, remoteURL string) (*gitstore.Store, error) {
	dir, err := config.CollabDir("default")
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
		return gitstore.Clone(ctx, remoteURL, dir)
	}
	store, err := gitstore.Open(dir)
	if err != nil {
		return nil, err
	}
	if err := store.Fetch(ctx); err != nil {
		return nil, fmt.Errorf("fetch collab repo: %w", err)
	}
	if err := store.ResetHard(ctx, "origin/main"); err != nil {
		return nil, fmt.Errorf("reset collab repo to origin/main: %w", err)
	}
	return store, nil
}

func githubTokenFlag(cmd *cobra.Command) string {
	token, _ := cmd.Flags().GetString("token")
	if token != "" {
		return token
	}
	return os.Getenv("GITHUB_TOKEN")
}

func runCollabRefresh(cmd *cobra.Command, args []string) error {
	cfg, home, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	if cfg.CollabURL == "" {
		return fmt.Errorf("no collab_url configured; run `tether collab join` first")
	}

	ctx := context.Background()
	store, err := openOrCloneCollabRepo(ctx, cfg.CollabURL)
	if err != nil {
		return err
	}
	layout := gitstore.NewLayout(store.Dir())

	manifest, err := collab.LoadManifest(layout.CollabManifestPath())
	if err != nil {
		return err
	}
	recipients, err := collab.LoadRecipients(layout.RecipientsDir())
	if err != nil {
		return err
	}
	set := collab.NewRecipientSet(recipients)

	host := collab.NewGitHubHost(githubTokenFlag(cmd))
	report, err := collab.Refresh(ctx, host, manifest.Projects, set)
	if err != nil {
		return fmt.Errorf("refresh collaborator union: %w", err)
	}

	for _, drifted := range report.Drifted {
		color.Yellow("drift: %s has a recipient key but is no longer a collaborator on any tracked project", drifted)
	}
	manifest.Authorized = report.Authorized
	if err := collab.SaveManifest(layout.CollabManifestPath(), manifest); err != nil {
		return err
	}

	passphrase, err := promptPassphrase("Collab identity passphrase: ")
	if err != nil {
		return err
	}
	id, err := crypto.LoadAsymmetricIdentity(home, passphrase)
	if err != nil {
		return fmt.Errorf("load this machine's collab identity: %w", err)
	}

	reencrypted, err := collab.ReencryptProjectSecrets(ctx, store.Dir(), id.Private, set.PublicKeys())
	if err != nil {
		return err
	}

	author := manifest.CreatedBy
	if author == "" {
		author = "tether-collab"
	}
	message := fmt.Sprintf("collab refresh: %d recipient(s), %d blob(s) re-encrypted", len(set.Usernames()), reencrypted)
	hash, err := store.Commit(message, author, author+"@tether.local")
	if err != nil {
		return fmt.Errorf("commit collab refresh: %w", err)
	}
	if hash != "" {
		if err := store.Push(ctx); err != nil {
			return fmt.Errorf("push collab refresh: %w", err)
		}
	}

	color.Green("refreshed: %d authorized recipient(s), %d drifted, %d secret(s) re-encrypted", len(report.Authorized), len(report.Drifted), reencrypted)
	return nil
}

func runCollabJoin(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	passphrase, _ := cmd.Flags().GetString("passphrase")
	if username == "" {
		return fmt.Errorf("--username is required")
	}

	cfg, home, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	if cfg.CollabURL == "" {
		return fmt.Errorf("no collab_url configured in config.toml")
	}

	ctx := context.Background()
	store, err := openOrCloneCollabRepo(ctx, cfg.CollabURL)
	if err != nil {
		return err
	}
	layout := gitstore.NewLayout(store.Dir())

	manifest, err := collab.LoadManifest(layout.CollabManifestPath())
	if err != nil {
		return err
	}

	host := collab.NewGitHubHost(githubTokenFlag(cmd))
	notCollaboratorOn, err := collab.VerifyCollaborator(ctx, host, manifest.Projects, username)
	if err != nil {
		return fmt.Errorf("verify collaborator status: %w", err)
	}
	if len(notCollaboratorOn) > 0 {
		return fmt.Errorf("%s is not a collaborator on: %s", username, strings.Join(notCollaboratorOn, ", "))
	}

	if passphrase == "" {
		p, perr := promptPassphrase("Choose a passphrase for this machine's collab identity: ")
		if perr != nil {
			return perr
		}
		passphrase = p
	}
	id, err := crypto.GenerateAsymmetricIdentity()
	if err != nil {
		return fmt.Errorf("generate collab identity: %w", err)
	}
	if err := crypto.SaveAsymmetricIdentity(home, id, passphrase); err != nil {
		return fmt.Errorf("save collab identity: %w", err)
	}
	if err := collab.SaveRecipientKey(layout.RecipientsDir(), username, id.Public); err != nil {
		return fmt.Errorf("enroll recipient key: %w", err)
	}

	hash, err := store.Commit(fmt.Sprintf("collab join: %s", username), username, username+"@tether.local")
	if err != nil {
		return fmt.Errorf("commit join: %w", err)
	}
	if hash != "" {
		if err := store.Push(ctx); err != nil {
			return fmt.Errorf("push join: %w", err)
		}
	}

	color.Green("joined as %s; run `tether collab refresh` to re-key existing secrets to include this machine", username)
	return nil
}
