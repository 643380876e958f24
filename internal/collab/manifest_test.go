package collab

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifestMissingFileReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadManifest(filepath.Join(dir, ".tether-collab.toml"))
	require.NoError(t, err)
	assert.Equal(t, manifestVersion, m.Version)
	assert.Empty(t, m.Projects)
}

func TestSaveAndLoadManifestRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".tether-collab.toml")

	m := &Manifest{
		Version:    manifestVersion,
		CreatedBy:  "alice",
		Projects:   []string{"org/repo-a", "org/repo-b"},
		Authorized: []string{"alice", "bob"},
	}
	require.NoError(t, SaveManifest(path, m))

	loaded, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m.CreatedBy, loaded.CreatedBy)
	assert.Equal(t, m.Projects, loaded.Projects)
	assert.Equal(t, m.Authorized, loaded.Authorized)
}

func TestLoadRecipientsMissingDirReturnsNilNotError(t *testing.T) {
	dir := t.TempDir()
	recipients, err := LoadRecipients(filepath.Join(dir, "recipients"))
	require.NoError(t, err)
	assert.Nil(t, recipients)
}

func TestSaveRecipientKeyThenLoadRecipients(t *testing.T) {
	dir := t.TempDir()
	recipientsDir := filepath.Join(dir, "recipients")

	require.NoError(t, SaveRecipientKey(recipientsDir, "alice", "age1alicekey"))
	require.NoError(t, SaveRecipientKey(recipientsDir, "bob", "age1bobkey"))

	recipients, err := LoadRecipients(recipientsDir)
	require.NoError(t, err)
	require.Len(t, recipients, 2)

	byUser := map[string]string{}
	for _, r := range recipients {
		byUser[r.Username] = r.PublicKey
	}
	assert.Equal(t, "age1alicekey", byUser["alice"])
	assert.Equal(t, "age1bobkey", byUser["bob"])
}
