package collab

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tether-sh/tether/internal/crypto"
)

func writeEncryptedSecret(t *testing.T, path, plaintext string, recipients []string) {
	t.Helper()
	blob, err := crypto.EncryptToRecipients(recipients, []byte(plaintext))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, blob, 0o644))
}

// TestReencryptProjectSecretsRekeysToNewRecipientSet replays the collab
// refresh flow: alice decrypts a blob encrypted to {alice} and re-encrypts
// it so {alice, bob} can both open it afterward.
func TestReencryptProjectSecretsRekeysToNewRecipientSet(t *testing.T) {
	alice, err := crypto.GenerateAsymmetricIdentity()
	require.NoError(t, err)
	bob, err := crypto.GenerateAsymmetricIdentity()
	require.NoError(t, err)

	root := t.TempDir()
	secretPath := filepath.Join(root, "projects", "org", "repo", "secrets", "db.env.enc")
	writeEncryptedSecret(t, secretPath, "DB_PASSWORD=hunter2", []string{alice.Public})

	count, err := ReencryptProjectSecrets(context.Background(), root, alice.Private, []string{alice.Public, bob.Public})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	reencrypted, err := os.ReadFile(secretPath)
	require.NoError(t, err)

	fromBob, err := crypto.DecryptFromRecipients(bob.Private, reencrypted)
	require.NoError(t, err)
	assert.Equal(t, "DB_PASSWORD=hunter2", string(fromBob))

	fromAlice, err := crypto.DecryptFromRecipients(alice.Private, reencrypted)
	require.NoError(t, err)
	assert.Equal(t, "DB_PASSWORD=hunter2", string(fromAlice))
}

func TestReencryptProjectSecretsIgnoresNonEncFiles(t *testing.T) {
	alice, err := crypto.GenerateAsymmetricIdentity()
	require.NoError(t, err)

	root := t.TempDir()
	plainPath := filepath.Join(root, "projects", "org", "repo", "README.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(plainPath), 0o755))
	require.NoError(t, os.WriteFile(plainPath, []byte("not a secret"), 0o644))

	count, err := ReencryptProjectSecrets(context.Background(), root, alice.Private, []string{alice.Public})
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	contents, err := os.ReadFile(plainPath)
	require.NoError(t, err)
	assert.Equal(t, "not a secret", string(contents))
}

func TestReencryptProjectSecretsMissingProjectsDirIsNoOp(t *testing.T) {
	alice, err := crypto.GenerateAsymmetricIdentity()
	require.NoError(t, err)

	root := t.TempDir()
	count, err := ReencryptProjectSecrets(context.Background(), root, alice.Private, []string{alice.Public})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
