package syncengine

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tether-sh/tether/internal/crypto"
	"github.com/tether-sh/tether/internal/state"
	"github.com/tether-sh/tether/pkg/config"
	"github.com/tether-sh/tether/pkg/fingerprint"
	"github.com/tether-sh/tether/pkg/ignore"
	"github.com/tether-sh/tether/pkg/pathspec"
	"github.com/tether-sh/tether/pkg/safeio"
	"github.com/tether-sh/tether/pkg/walk"
)

// phase7ExportDotfiles encrypts and writes every tracked dotfile that has
// changed locally since the last sync, skipping any path currently
// holding a pending conflict (the no-write-under-conflict invariant
// applies to phase 4's local writes, but exporting an unresolved local
// copy over the remote would equally discard the other side, so export
// is withheld the same way).
func (e *Engine) phase7ExportDotfiles(tc *tickContext) error {
	profile, ok := e.Config.Profiles[e.ProfileName]
	if !ok {
		return nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	for _, spec := range profile.Dotfiles {
		relPath, err := pathspec.ValidateDotfilePath(spec.Path)
		if err != nil {
			continue // already warned in phase 4
		}
		if isIgnoredDotfile(tc.machineState, relPath) {
			continue
		}
		if _, pending := tc.conflicts.Get(relPath); pending {
			continue
		}

		localPath := filepath.Join(homeDir, relPath)
		data, err := os.ReadFile(localPath) // #nosec G304 -- path validated by pathspec and joined under the user's home
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			tc.warn(7, relPath, "read local file: %v", err)
			continue
		}

		localFP := fingerprint.Of(data)
		if tc.syncState.Files[relPath].FP == localFP {
			continue
		}

		if e.ScanSecrets {
			if n := scanForSecrets(data); n > 0 {
				tc.warn(7, relPath, "%d likely secret(s) found; will be encrypted", n)
			}
		}

		if tc.dryRun {
			continue
		}
		blob, err := crypto.Encrypt(tc.key, data)
		if err != nil {
			tc.warn(7, relPath, "encrypt: %v", err)
			continue
		}
		if err := safeio.WriteFileAtomic(e.Layout.DotfileBlob(relPath), blob, 0o644); err != nil {
			tc.warn(7, relPath, "write remote blob: %v", err)
			continue
		}
		tc.syncState.Files[relPath] = state.FileState{FP: localFP, LastModified: nowUTC(), Synced: true}
	}
	return nil
}

// sourceLinePattern matches a POSIX shell `source <path>` or `. <path>`
// directive, capturing the sourced path.
var sourceLinePattern = regexp.MustCompile(`(?m)^\s*(?:source|\.)\s+["']?(~?[^"'\s]+)["']?`)

// phase8DiscoverSourcedDirs scans each tracked dotfile that looks like a
// shell config for `source`/`.` directives and adds any newly-discovered
// directory to the profile's tracked-directory list, persisting the
// update so phase 9 (and future ticks) pick it up.
func (e *Engine) phase8DiscoverSourcedDirs(tc *tickContext) error {
	profile, ok := e.Config.Profiles[e.ProfileName]
	if !ok {
		return nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	known := make(map[string]bool, len(profile.Directories))
	for _, d := range profile.Directories {
		known[d] = true
	}

	discovered := false
	for _, spec := range profile.Dotfiles {
		relPath, err := pathspec.ValidateDotfilePath(spec.Path)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(homeDir, relPath)) // #nosec G304 -- path validated by pathspec
		if err != nil {
			continue
		}
		for _, m := range sourceLinePattern.FindAllStringSubmatch(string(data), -1) {
			dir := sourcedPathToTrackedDir(m[1], homeDir)
			if dir == "" || known[dir] {
				continue
			}
			known[dir] = true
			profile.Directories = append(profile.Directories, dir)
			discovered = true
		}
	}

	if discovered {
		e.Config.Profiles[e.ProfileName] = profile
		if !tc.dryRun {
			if err := config.SaveConfig(e.Config); err != nil {
				return fmt.Errorf("save config after directory discovery: %w", err)
			}
		}
	}
	return nil
}

// sourcedPathToTrackedDir converts a sourced path/glob like
// "~/.config/xyz/*" into the home-relative directory ".config/xyz", or a
// plain file like "~/.zsh/plugins/foo.zsh" into ".zsh/plugins". Returns
// "" if it does not resolve under the home directory.
func sourcedPathToTrackedDir(sourced, homeDir string) string {
	p := strings.TrimPrefix(sourced, "~/")
	if p == sourced && !strings.HasPrefix(sourced, homeDir) {
		return ""
	}
	p = strings.TrimPrefix(p, homeDir+"/")
	p = filepath.ToSlash(p)

	if trimmed := strings.TrimSuffix(p, "/*"); trimmed != p {
		p = trimmed
	} else {
		p = filepath.Dir(p)
	}

	if p == "." || p == "" || strings.HasPrefix(p, "..") {
		return ""
	}
	return p
}

// phase9ExportDirectories recursively walks every tracked directory (and,
// when only_if_gitignored is false, every discovered project checkout)
// and exports each changed file the same way phase 7 exports dotfiles,
// skipping the static build-output skip list baked into pkg/walk.
func (e *Engine) phase9ExportDirectories(tc *tickContext) error {
	profile, ok := e.Config.Profiles[e.ProfileName]
	if !ok {
		return nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	for _, dir := range profile.Directories {
		root := filepath.Join(homeDir, dir)
		walkErr := walk.Walk(root, walk.Options{}, func(relPath string, info os.FileInfo) error {
			e.exportFileNoConflict(tc, 9, filepath.Join(root, relPath), e.Layout.ConfigBlob(filepath.ToSlash(filepath.Join(dir, relPath))), filepath.Join(dir, relPath))
			return nil
		})
		if walkErr != nil {
			tc.warn(9, dir, "walk tracked directory: %v", walkErr)
		}
	}

	checkouts := discoverProjectCheckouts(profile.ProjectSearchPaths)
	for normalizedURL, localRoot := range checkouts {
		gitignoreOnly := e.Config.Sync.OnlyIfGitignored
		var matcher *ignore.Matcher
		if gitignoreOnly {
			matcher, err = ignore.NewMatcher(localRoot)
			if err != nil {
				tc.warn(9, normalizedURL, "build gitignore matcher: %v", err)
				continue
			}
		}
		walkErr := walk.Walk(localRoot, walk.Options{}, func(relPath string, info os.FileInfo) error {
			if gitignoreOnly && !matcher.IsIgnoredRel(relPath) {
				return nil
			}
			watermarkKey := normalizedURL + "/" + relPath
			if contains(tc.machineState.IgnoredProjectConfigs[normalizedURL], relPath) {
				return nil
			}
			e.exportFileNoConflict(tc, 9, filepath.Join(localRoot, relPath),
				filepath.Join(e.Store.Dir(), "projects", normalizedURL, relPath+".enc"), watermarkKey)
			return nil
		})
		if walkErr != nil {
			tc.warn(9, normalizedURL, "walk project checkout: %v", walkErr)
		}
	}
	return nil
}

func (e *Engine) exportFileNoConflict(tc *tickContext, phase int, localPath, remotePath, watermarkKey string) {
	data, err := os.ReadFile(localPath) // #nosec G304 -- path built from a walked, already-validated root
	if err != nil {
		tc.warn(phase, watermarkKey, "read local file: %v", err)
		return
	}
	localFP := fingerprint.Of(data)
	if tc.syncState.Files[watermarkKey].FP == localFP {
		return
	}
	if tc.dryRun {
		return
	}
	blob, err := crypto.Encrypt(tc.key, data)
	if err != nil {
		tc.warn(phase, watermarkKey, "encrypt: %v", err)
		return
	}
	if err := safeio.WriteFileAtomic(remotePath, blob, 0o644); err != nil {
		tc.warn(phase, watermarkKey, "write remote blob: %v", err)
		return
	}
	tc.syncState.Files[watermarkKey] = state.FileState{FP: localFP, LastModified: nowUTC(), Synced: true}
}
