package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptFromRecipientsRoundTrip(t *testing.T) {
	alice, err := GenerateAsymmetricIdentity()
	require.NoError(t, err)
	bob, err := GenerateAsymmetricIdentity()
	require.NoError(t, err)

	blob, err := EncryptToRecipients([]string{alice.Public, bob.Public}, []byte("prod db password"))
	require.NoError(t, err)

	fromAlice, err := DecryptFromRecipients(alice.Private, blob)
	require.NoError(t, err)
	assert.Equal(t, "prod db password", string(fromAlice))

	fromBob, err := DecryptFromRecipients(bob.Private, blob)
	require.NoError(t, err)
	assert.Equal(t, "prod db password", string(fromBob))
}

func TestDecryptFromRecipientsNonMemberFails(t *testing.T) {
	alice, err := GenerateAsymmetricIdentity()
	require.NoError(t, err)
	outsider, err := GenerateAsymmetricIdentity()
	require.NoError(t, err)

	blob, err := EncryptToRecipients([]string{alice.Public}, []byte("secret"))
	require.NoError(t, err)

	_, err = DecryptFromRecipients(outsider.Private, blob)
	assert.Error(t, err)
}

func TestEncryptToRecipientsRequiresAtLeastOne(t *testing.T) {
	_, err := EncryptToRecipients(nil, []byte("x"))
	assert.Error(t, err)
}

func TestRevocationByReEncryption(t *testing.T) {
	alice, err := GenerateAsymmetricIdentity()
	require.NoError(t, err)
	bob, err := GenerateAsymmetricIdentity()
	require.NoError(t, err)

	// Bob is removed from the recipient set and the secret is re-encrypted.
	blob, err := EncryptToRecipients([]string{alice.Public}, []byte("rotated secret"))
	require.NoError(t, err)

	_, err = DecryptFromRecipients(bob.Private, blob)
	assert.Error(t, err, "a revoked collaborator must not decrypt secrets re-encrypted after removal")
}
