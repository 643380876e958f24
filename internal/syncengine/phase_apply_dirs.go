package syncengine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tether-sh/tether/internal/crypto"
	"github.com/tether-sh/tether/internal/gitstore"
	"github.com/tether-sh/tether/internal/state"
	"github.com/tether-sh/tether/pkg/fingerprint"
	"github.com/tether-sh/tether/pkg/safeio"
	"github.com/tether-sh/tether/pkg/walk"
)

// phase5ApplyRemoteConfigs applies every encrypted file under the clone's
// configs/ subtree whose corresponding home-relative path is tracked by
// the active profile's Directories list. Unlike phase 4, no conflict is
// ever raised: a changed remote file is simply written over local,
// per spec §4.1 phase 5's "remote-only-if-changed apply" policy.
func (e *Engine) phase5ApplyRemoteConfigs(tc *tickContext) error {
	profile, ok := e.Config.Profiles[e.ProfileName]
	if !ok {
		return nil
	}
	configsRoot := filepath.Join(e.Store.Dir(), "configs")
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	return walk.Walk(configsRoot, walk.Options{MaxDepth: 32}, func(relPath string, info os.FileInfo) error {
		if !strings.HasSuffix(relPath, ".enc") {
			return nil
		}
		relHomePath := strings.TrimSuffix(relPath, ".enc")
		if !underAnyDirectory(relHomePath, profile.Directories) {
			return nil
		}
		e.applyRemoteFileNoConflict(tc, 5, filepath.Join(configsRoot, relPath), filepath.Join(homeDir, relHomePath), relHomePath)
		return nil
	})
}

// phase6ApplyRemoteProjectConfigs applies the projects/<normalized-url>/
// subtree: for every tracked project search path that resolves to a git
// checkout whose origin URL matches a directory under projects/, decrypt
// and apply each file by the same remote-if-changed rule, skipping
// entries this machine has ignored.
func (e *Engine) phase6ApplyRemoteProjectConfigs(tc *tickContext) error {
	profile, ok := e.Config.Profiles[e.ProfileName]
	if !ok {
		return nil
	}
	projectsRoot := filepath.Join(e.Store.Dir(), "projects")
	checkouts := discoverProjectCheckouts(profile.ProjectSearchPaths)

	for normalizedURL, localRoot := range checkouts {
		projectDir := filepath.Join(projectsRoot, normalizedURL)
		if _, err := os.Stat(projectDir); os.IsNotExist(err) {
			continue
		}
		ignored := tc.machineState.IgnoredProjectConfigs[normalizedURL]
		walkErr := walk.Walk(projectDir, walk.Options{MaxDepth: 32}, func(relPath string, info os.FileInfo) error {
			if !strings.HasSuffix(relPath, ".enc") {
				return nil
			}
			relProjectPath := strings.TrimSuffix(relPath, ".enc")
			if contains(ignored, relProjectPath) {
				return nil
			}
			e.applyRemoteFileNoConflict(tc, 6,
				filepath.Join(projectDir, relPath),
				filepath.Join(localRoot, relProjectPath),
				normalizedURL+"/"+relProjectPath)
			return nil
		})
		if walkErr != nil {
			tc.warn(6, normalizedURL, "walk project configs: %v", walkErr)
		}
	}
	return nil
}

// applyRemoteFileNoConflict decrypts remotePath and writes it to
// localPath if its plaintext fingerprint differs from the local file's,
// recording the new fingerprint in SyncState under watermarkKey.
func (e *Engine) applyRemoteFileNoConflict(tc *tickContext, phase int, remotePath, localPath, watermarkKey string) {
	remoteBlob, err := os.ReadFile(remotePath) // #nosec G304 -- path built by walking the clone's own tree
	if err != nil {
		tc.warn(phase, watermarkKey, "read remote blob: %v", err)
		return
	}
	remotePlaintext, err := crypto.Decrypt(tc.key, remoteBlob)
	if err != nil {
		tc.warn(phase, watermarkKey, "decrypt: %v", err)
		return
	}
	remoteFP := fingerprint.Of(remotePlaintext)
	localFP, _ := fingerprint.OfFile(localPath)
	if fingerprint.Equal(localFP, remoteFP) {
		return
	}
	if tc.dryRun {
		return
	}
	if err := safeio.WriteFileAtomic(localPath, remotePlaintext, 0o644); err != nil {
		tc.warn(phase, watermarkKey, "write local file: %v", err)
		return
	}
	tc.syncState.Files[watermarkKey] = state.FileState{FP: remoteFP, LastModified: nowUTC(), Synced: true}
}

func underAnyDirectory(relPath string, dirs []string) bool {
	for _, d := range dirs {
		d = strings.TrimSuffix(d, "/")
		if relPath == d || strings.HasPrefix(relPath, d+"/") {
			return true
		}
	}
	return false
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}

// discoverProjectCheckouts scans each search path's immediate
// subdirectories for a git repository and maps its normalized origin URL
// to its local root. Unreadable or non-git entries are skipped silently;
// this is best-effort discovery, not a tracked configuration surface.
func discoverProjectCheckouts(searchPaths []string) map[string]string {
	out := map[string]string{}
	for _, root := range searchPaths {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			candidate := filepath.Join(root, entry.Name())
			store, err := gitstore.Open(candidate)
			if err != nil {
				continue
			}
			remoteURL, err := store.RemoteURL()
			if err != nil {
				continue
			}
			out[gitstore.NormalizeRemoteURL(remoteURL)] = candidate
		}
	}
	return out
}
