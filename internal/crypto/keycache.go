package crypto

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/tether-sh/tether/pkg/safeio"
)

// ErrLocked is returned by LoadCachedKey when no plaintext key cache
// exists and no passphrase was supplied to derive one; fatal in agent
// mode, a prompt trigger in interactive mode.
var ErrLocked = errors.New("symmetric key is locked: no cached key and no passphrase supplied")

// cacheFilename is the fixed plaintext cache file every machine keeps
// under its tether home so later processes can unlock without
// reprompting, per the shared resource policy: the derived key never
// leaves process memory, but this cache does.
const cacheFilename = "identity.cache"

// LoadCachedKey reads the plaintext symmetric key cache at
// <tetherHome>/identity.cache. Returns ErrLocked if the file does not exist.
func LoadCachedKey(tetherHome string) ([]byte, error) {
	path := filepath.Join(tetherHome, cacheFilename)
	data, err := safeio.ReadFileContained(tetherHome, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrLocked
		}
		return nil, err
	}
	if len(data) != keySize {
		return nil, ErrLocked
	}
	return data, nil
}

// SaveCachedKey writes key to the plaintext cache file at mode 0600, run
// once a passphrase unlock or first-run generation has recovered it.
func SaveCachedKey(tetherHome string, key []byte) error {
	return safeio.WriteSecureFile(filepath.Join(tetherHome, cacheFilename), key)
}

// RemoveCachedKey deletes the plaintext key cache, used by a future
// `tether lock` command to force the next tick to reprompt.
func RemoveCachedKey(tetherHome string) error {
	err := os.Remove(filepath.Join(tetherHome, cacheFilename))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
