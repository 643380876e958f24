package syncengine

import (
	"errors"
	"fmt"

	"github.com/tether-sh/tether/internal/conflict"
	"github.com/tether-sh/tether/internal/crypto"
	"github.com/tether-sh/tether/internal/state"
)

// phase1Unlock recovers the symmetric key from the plaintext cache, or
// derives and caches it from e.Passphrase on a cold start. A missing
// cache with no passphrase supplied is fatal for the tick, per spec
// §4.1 phase 1 and the Locked error kind.
func (e *Engine) phase1Unlock(tc *tickContext) error {
	key, err := crypto.LoadCachedKey(e.TetherHome)
	if err == nil {
		tc.key = key
		return nil
	}
	if !errors.Is(err, crypto.ErrLocked) {
		return fmt.Errorf("load key cache: %w", err)
	}
	if e.Passphrase == "" {
		return crypto.ErrLocked
	}

	id, err := crypto.LoadMachineIdentity(e.TetherHome)
	if err != nil {
		return fmt.Errorf("load machine identity: %w", err)
	}
	key, err = id.Unlock(e.Passphrase)
	if err != nil {
		return err
	}
	if err := crypto.SaveCachedKey(e.TetherHome, key); err != nil {
		return fmt.Errorf("cache unlocked key: %w", err)
	}
	tc.key = key
	return nil
}

// phase2Pull aborts any rebase left by a crashed prior tick, then fetches
// and rebases onto origin's tracking branch, falling back to a hard
// reset if rebase fails — the tick's later export phases re-derive local
// contributions, so discarding unpushed local commits here is safe per
// spec §4.1 phase 2 and invariant 3 (S5).
func (e *Engine) phase2Pull(tc *tickContext) error {
	if e.Store.StaleRebase() {
		if err := e.Store.AbortRebase(tc.ctx); err != nil {
			return fmt.Errorf("abort stale rebase: %w", err)
		}
	}

	if err := e.Store.Fetch(tc.ctx); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	const branch = "main"
	exists, err := e.Store.RemoteBranchExists(branch)
	if err != nil {
		return fmt.Errorf("check remote branch: %w", err)
	}
	if exists {
		if err := e.Store.Rebase(tc.ctx, branch); err != nil {
			if abortErr := e.Store.AbortRebase(tc.ctx); abortErr != nil {
				return fmt.Errorf("rebase failed (%v) and abort also failed: %w", err, abortErr)
			}
			if resetErr := e.Store.ResetHard(tc.ctx, "origin/"+branch); resetErr != nil {
				return fmt.Errorf("rebase failed (%v) and reset also failed: %w", err, resetErr)
			}
		}
	}

	tc.syncState, err = state.LoadSyncState(e.TetherHome, e.MachineID)
	if err != nil {
		return fmt.Errorf("load sync state: %w", err)
	}
	tc.conflicts, err = conflict.Open(e.TetherHome)
	if err != nil {
		return fmt.Errorf("open conflict store: %w", err)
	}
	return nil
}
