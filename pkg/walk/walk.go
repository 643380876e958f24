// Package walk provides a skip-list-aware recursive directory walker used
// to discover local dotfile directories and project-config trees.
package walk

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultSkipDirs are never descended into regardless of caller config.
var DefaultSkipDirs = []string{
	"node_modules", "target", ".git", "__pycache__", "venv", "dist", "build",
}

// DefaultMaxDepth bounds recursion for directory syncs and sourced-dir
// discovery; callers may override via Options.MaxDepth.
const DefaultMaxDepth = 5

// VisitFunc is called for every non-skipped, non-directory file encountered.
// relPath is slash-separated and relative to root.
type VisitFunc func(relPath string, info os.FileInfo) error

// Options configures a single Walk call.
type Options struct {
	SkipDirs []string

	// SkipPatterns are doublestar glob patterns (e.g. "**/*.log",
	// "vendor/**") matched against the file's full slash-separated path
	// relative to root, not just its basename.
	SkipPatterns []string
	MaxDepth     int
}

// Walk recursively visits files under root, honoring the skip-list filter
// as part of traversal (directories matching SkipDirs are never descended
// into, not merely filtered from the result).
func Walk(root string, opts Options, fn VisitFunc) error {
	skipDirs := opts.SkipDirs
	if skipDirs == nil {
		skipDirs = DefaultSkipDirs
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		depth := strings.Count(rel, "/") + 1

		if info.IsDir() {
			base := info.Name()
			for _, skip := range skipDirs {
				if base == skip {
					return filepath.SkipDir
				}
			}
			if depth > maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if depth > maxDepth {
			return nil
		}
		for _, pattern := range opts.SkipPatterns {
			if matched, _ := doublestar.Match(pattern, rel); matched {
				return nil
			}
		}

		return fn(rel, info)
	})
}

// CreatePlatformSymlink creates a symlink at link pointing at target. On
// Windows without symlink privilege, os.Symlink returns an error the caller
// should treat as a warning, not a fatal condition.
func CreatePlatformSymlink(target, link string) error {
	_ = os.Remove(link)
	if err := os.MkdirAll(filepath.Dir(link), 0o750); err != nil {
		return err
	}
	return os.Symlink(target, link)
}
