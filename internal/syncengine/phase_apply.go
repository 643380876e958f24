package syncengine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tether-sh/tether/internal/conflict"
	"github.com/tether-sh/tether/internal/crypto"
	"github.com/tether-sh/tether/internal/state"
	"github.com/tether-sh/tether/pkg/fingerprint"
	"github.com/tether-sh/tether/pkg/notify"
	"github.com/tether-sh/tether/pkg/pathspec"
	"github.com/tether-sh/tether/pkg/safeio"
)

func isIgnoredDotfile(m *state.MachineState, relPath string) bool {
	for _, p := range m.IgnoredDotfiles {
		if p == relPath {
			return true
		}
	}
	return false
}

// phase4ApplyRemoteFiles loads this machine's MachineState and, for every
// configured dotfile not on its ignore list, applies the three-hash rule
// of spec §4.1 phase 4: equal hashes skip, a true conflict defers to
// PendingConflict plus a notification, otherwise remote wins.
func (e *Engine) phase4ApplyRemoteFiles(tc *tickContext) error {
	var err error
	tc.machineState, err = state.LoadMachineState(e.Store.Dir(), e.MachineID, e.Hostname, e.OSVersion)
	if err != nil {
		return fmt.Errorf("load machine state: %w", err)
	}

	profile, ok := e.Config.Profiles[e.ProfileName]
	if !ok {
		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	newConflicts := 0
	for _, spec := range profile.Dotfiles {
		relPath, err := pathspec.ValidateDotfilePath(spec.Path)
		if err != nil {
			tc.warn(4, spec.Path, "invalid dotfile path: %v", err)
			continue
		}
		if isIgnoredDotfile(tc.machineState, relPath) {
			continue
		}

		localPath := filepath.Join(homeDir, relPath)
		remotePath := e.Layout.DotfileBlob(relPath)

		remoteBlob, err := os.ReadFile(remotePath) // #nosec G304 -- path built from Layout, never user input directly
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			tc.warn(4, relPath, "read remote blob: %v", err)
			continue
		}
		remotePlaintext, err := crypto.Decrypt(tc.key, remoteBlob)
		if err != nil {
			tc.warn(4, relPath, "decrypt: %v", err)
			continue
		}

		localFP := ""
		localExists := true
		if local, ferr := fingerprint.OfFile(localPath); ferr == nil {
			localFP = local
		} else if os.IsNotExist(ferr) {
			localExists = false
		} else {
			tc.warn(4, relPath, "fingerprint local file: %v", ferr)
			continue
		}
		if !localExists && !spec.CreateIfMissing {
			continue
		}

		remoteFP := fingerprint.Of(remotePlaintext)
		if fingerprint.Equal(localFP, remoteFP) {
			continue
		}

		// A local file that has never existed can't conflict with anything;
		// the original always writes remote in this case rather than
		// consulting conflict.Detect, whose nil-watermark branch would
		// otherwise treat "" != remoteFP as a true conflict and block the
		// file from ever being created.
		if localExists {
			var lastFP *string
			if fs, ok := tc.syncState.Files[relPath]; ok && fs.FP != "" {
				lastFP = &fs.FP
			}

			if conflict.Detect(localFP, remoteFP, lastFP) {
				tc.conflicts.Add(state.PendingConflict{
					Path:       relPath,
					LocalFP:    localFP,
					RemoteFP:   remoteFP,
					DetectedAt: nowUTC(),
				})
				newConflicts++
				continue
			}
		}

		if tc.dryRun {
			continue
		}
		if err := safeio.WriteFileAtomic(localPath, remotePlaintext, 0o644); err != nil {
			tc.warn(4, relPath, "write local file: %v", err)
			continue
		}
		tc.syncState.Files[relPath] = state.FileState{FP: remoteFP, LastModified: nowUTC(), Synced: true}
	}

	tc.newConflicts += newConflicts
	if newConflicts > 0 {
		if !tc.dryRun {
			if err := tc.conflicts.Save(); err != nil {
				return fmt.Errorf("save pending conflicts: %w", err)
			}
		}
		if e.Notifier != nil {
			if err := notify.NotifyConflicts(e.Notifier, newConflicts); err != nil {
				tc.warn(4, "", "notify conflicts: %v", err)
			}
		}
	}
	return nil
}
