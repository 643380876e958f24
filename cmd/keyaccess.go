package cmd

import (
	"errors"
	"fmt"

	"github.com/tether-sh/tether/internal/crypto"
)

// resolveKey returns the unlocked symmetric key, preferring the plaintext
// cache over a freshly supplied passphrase so commands that only read
// (conflicts, history, diff) don't force a re-prompt on an already
// unlocked machine.
func resolveKey(home, passphrase string) ([]byte, error) {
	key, err := crypto.LoadCachedKey(home)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, crypto.ErrLocked) {
		return nil, fmt.Errorf("load key cache: %w", err)
	}
	if passphrase == "" {
		p, perr := promptPassphrase("Passphrase: ")
		if perr != nil {
			return nil, perr
		}
		passphrase = p
	}
	id, err := crypto.LoadMachineIdentity(home)
	if err != nil {
		return nil, fmt.Errorf("load machine identity: %w", err)
	}
	return id.Unlock(passphrase)
}
