package syncengine

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/tether-sh/tether/internal/crypto"
	"github.com/tether-sh/tether/internal/state"
	"github.com/tether-sh/tether/pkg/safeio"
)

// phase13WriteMachineState writes this machine's state to
// machines/<id>.json, ahead of the commit so remote observers see the
// machine-state file consistent with the blobs committed in the same
// push (spec §5's ordering guarantee).
func (e *Engine) phase13WriteMachineState(tc *tickContext) error {
	if tc.dryRun {
		return nil
	}
	tc.machineState.Hostname = e.Hostname
	tc.machineState.OSVersion = e.OSVersion
	tc.machineState.LastSync = nowUTC()
	if err := state.SaveMachineState(e.Store.Dir(), tc.machineState); err != nil {
		return fmt.Errorf("write machine state: %w", err)
	}
	return nil
}

// phase14SelfConfigExport always writes the tool's own configuration to
// the fixed shared path, regardless of user feature flags — spec §4.1
// phase 14 and §6's "always tracked" layout note.
func (e *Engine) phase14SelfConfigExport(tc *tickContext) error {
	if tc.dryRun {
		return nil
	}
	data, err := toml.Marshal(e.Config)
	if err != nil {
		return fmt.Errorf("marshal self config: %w", err)
	}
	blob, err := crypto.Encrypt(tc.key, data)
	if err != nil {
		return fmt.Errorf("encrypt self config: %w", err)
	}
	if err := safeio.WriteFileAtomic(e.Layout.SelfConfigBlob(), blob, 0o644); err != nil {
		return fmt.Errorf("write self config blob: %w", err)
	}
	return nil
}

// phase15CommitAndPush commits the working tree (if dirty) as the
// machine, then pushes, retrying the full pull-rebase cycle up to
// maxPushRetries times on a non-fast-forward push per spec §4.1 phase 15.
func (e *Engine) phase15CommitAndPush(tc *tickContext) error {
	if tc.dryRun {
		return nil
	}
	message := fmt.Sprintf("sync: %s", e.MachineID)

	for attempt := 0; ; attempt++ {
		hash, err := e.Store.Commit(message, e.MachineID, e.MachineID+"@tether.local")
		if err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		tc.commitHash = hash

		if hash == "" {
			return nil // nothing to push
		}
		pushErr := e.Store.Push(tc.ctx)
		if pushErr == nil {
			return nil
		}
		if attempt >= maxPushRetries {
			return fmt.Errorf("push failed after %d retries: %w", maxPushRetries, pushErr)
		}
		if err := e.phase2Pull(tc); err != nil {
			return fmt.Errorf("re-pull after push rejection: %w", err)
		}
	}
}

// phase16MarkSynced records the completed tick's timestamp and persists
// SyncState; the watermark only advances on a tick that reaches here.
func (e *Engine) phase16MarkSynced(tc *tickContext) error {
	if tc.dryRun {
		return nil
	}
	tc.syncState.LastSync = nowUTC()
	if err := state.SaveSyncState(e.TetherHome, tc.syncState); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}
