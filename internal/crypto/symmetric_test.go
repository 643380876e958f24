package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)

	plaintext := []byte("export ZSH=$HOME/.oh-my-zsh")
	blob, err := Encrypt(key, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, blob)

	recovered, err := Decrypt(key, blob)
	require.NoError(t, err)
	assert.Equal(t, plaintext, recovered)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)
	other, err := GenerateSymmetricKey()
	require.NoError(t, err)

	blob, err := Encrypt(key, []byte("secret"))
	require.NoError(t, err)

	_, err = Decrypt(other, blob)
	assert.Error(t, err)
}

func TestDecryptTruncatedBlobFails(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)
	_, err = Decrypt(key, []byte("short"))
	assert.Error(t, err)
}

func TestWrapUnwrapKeyRoundTrip(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	plainKey, err := GenerateSymmetricKey()
	require.NoError(t, err)

	wrapped, err := WrapKey("correct horse battery staple", salt, plainKey)
	require.NoError(t, err)

	unwrapped, err := UnwrapKey("correct horse battery staple", salt, wrapped)
	require.NoError(t, err)
	assert.Equal(t, plainKey, unwrapped)
}

func TestUnwrapKeyWrongPassphraseFails(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	plainKey, err := GenerateSymmetricKey()
	require.NoError(t, err)

	wrapped, err := WrapKey("correct horse battery staple", salt, plainKey)
	require.NoError(t, err)

	_, err = UnwrapKey("wrong passphrase", salt, wrapped)
	assert.Error(t, err)
}
