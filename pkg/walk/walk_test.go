package walk

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestWalkVisitsFilesAndSkipsDefaultDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"))
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "index.js"))
	writeFile(t, filepath.Join(root, "sub", "b.txt"))

	var visited []string
	err := Walk(root, Options{}, func(relPath string, info os.FileInfo) error {
		visited = append(visited, relPath)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(visited)
	assert.Equal(t, []string{"a.txt", "sub/b.txt"}, visited)
}

func TestWalkRespectsMaxDepth(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.txt"))
	writeFile(t, filepath.Join(root, "a", "b", "c", "deep.txt"))

	var visited []string
	err := Walk(root, Options{MaxDepth: 2}, func(relPath string, info os.FileInfo) error {
		visited = append(visited, relPath)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"top.txt"}, visited)
}

func TestWalkSkipPatternsMatchFullRelativePathWithDoublestar(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.log"))
	writeFile(t, filepath.Join(root, "src", "deep", "trace.log"))
	writeFile(t, filepath.Join(root, "src", "main.go"))

	var visited []string
	err := Walk(root, Options{SkipPatterns: []string{"**/*.log"}}, func(relPath string, info os.FileInfo) error {
		visited = append(visited, relPath)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(visited)
	assert.Equal(t, []string{"src/main.go"}, visited)
}

func TestWalkCustomSkipDirsPrunesSubtree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.txt"))
	writeFile(t, filepath.Join(root, "vendor", "dep.go"))

	var visited []string
	err := Walk(root, Options{SkipDirs: []string{"vendor"}}, func(relPath string, info os.FileInfo) error {
		visited = append(visited, relPath)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, visited)
}

func TestWalkMissingRootIsNoOp(t *testing.T) {
	err := Walk(filepath.Join(t.TempDir(), "does-not-exist"), Options{}, func(relPath string, info os.FileInfo) error {
		t.Fatal("visit func should not be called")
		return nil
	})
	require.NoError(t, err)
}
