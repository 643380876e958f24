package syncengine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tether-sh/tether/internal/crypto"
	"github.com/tether-sh/tether/internal/state"
	"github.com/tether-sh/tether/pkg/config"
	"github.com/tether-sh/tether/pkg/fingerprint"
	"github.com/tether-sh/tether/pkg/safeio"
)

const selfConfigWatermarkKey = "__tether_self_config__"

// phase3SelfConfigSync decrypts the shared repo's copy of the tool's own
// configuration and writes it locally only if the local file has not
// changed since the last sync (local-fp vs. watermark); otherwise local
// wins. Configuration is then reloaded from the (possibly updated) local
// copy before any later phase reads e.Config, per spec §4.1 phase 3.
func (e *Engine) phase3SelfConfigSync(tc *tickContext) error {
	localPath := filepath.Join(e.TetherHome, "config.toml")
	remotePath := e.Layout.SelfConfigBlob()

	remoteBlob, err := os.ReadFile(remotePath) // #nosec G304 -- fixed path under the content-store clone
	if errors.Is(err, os.ErrNotExist) {
		return nil // no shared copy yet; phase 14 will create one
	}
	if err != nil {
		return fmt.Errorf("read shared config blob: %w", err)
	}

	remotePlaintext, err := crypto.Decrypt(tc.key, remoteBlob)
	if err != nil {
		tc.warn(3, remotePath, "decrypt shared config: %v", err)
		return nil
	}

	localFP := ""
	if local, err := fingerprint.OfFile(localPath); err == nil {
		localFP = local
	}
	remoteFP := fingerprint.Of(remotePlaintext)
	lastFP := tc.syncState.Files[selfConfigWatermarkKey].FP

	if fingerprint.Equal(localFP, remoteFP) {
		return e.reloadConfig()
	}
	if lastFP != "" && localFP != lastFP {
		// local changed since the last sync: local wins, do not overwrite.
		return e.reloadConfig()
	}

	if err := safeio.WriteFileAtomic(localPath, remotePlaintext, 0o600); err != nil {
		return fmt.Errorf("write local config: %w", err)
	}
	tc.syncState.Files[selfConfigWatermarkKey] = state.FileState{FP: remoteFP, LastModified: nowUTC(), Synced: true}
	return e.reloadConfig()
}

func (e *Engine) reloadConfig() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	e.Config = cfg
	return nil
}
