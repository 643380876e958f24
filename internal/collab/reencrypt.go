package collab

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tether-sh/tether/internal/crypto"
)

// ReencryptProjectSecrets walks every .enc blob under root's projects/
// tree, decrypts each with the calling machine's own collab private key,
// and re-encrypts it to the current recipient public key set — the
// "physical set" re-keying rule of §4.4. Blobs are gathered up front with
// a plain filepath.WalkDir, then decrypted/re-encrypted concurrently,
// mirroring the package-manager query fan-out in phase 10.
func ReencryptProjectSecrets(ctx context.Context, root, ownPrivateIdentity string, recipientKeys []string) (int, error) {
	projectsDir := filepath.Join(root, "projects")
	var paths []string
	err := filepath.WalkDir(projectsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".enc") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk project secrets: %w", err)
	}

	var (
		mu    sync.Mutex
		count int
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			blob, err := os.ReadFile(path) // #nosec G304 -- path came from this function's own WalkDir
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			plaintext, err := crypto.DecryptFromRecipients(ownPrivateIdentity, blob)
			if err != nil {
				return fmt.Errorf("decrypt %s: %w", path, err)
			}
			reencrypted, err := crypto.EncryptToRecipients(recipientKeys, plaintext)
			if err != nil {
				return fmt.Errorf("re-encrypt %s: %w", path, err)
			}
			if err := os.WriteFile(path, reencrypted, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			mu.Lock()
			count++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return count, nil
}
