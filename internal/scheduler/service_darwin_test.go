//go:build darwin

package scheduler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLaunchdPlistContainsExecutableAndInterval(t *testing.T) {
	plist, err := RenderLaunchdPlist(ServiceSpec{
		Label:           "sh.tether.agent",
		ExecutablePath:  "/usr/local/bin/tether",
		IntervalSeconds: 300,
		LogPath:         "/tmp/tether.log",
	})
	require.NoError(t, err)
	text := string(plist)
	assert.Contains(t, text, "sh.tether.agent")
	assert.Contains(t, text, "/usr/local/bin/tether")
	assert.True(t, strings.Contains(text, "<integer>300</integer>"))
}

func TestLaunchAgentPathUsesLibraryLaunchAgents(t *testing.T) {
	path := LaunchAgentPath("/Users/dev", "sh.tether.agent")
	assert.Equal(t, "/Users/dev/Library/LaunchAgents/sh.tether.agent.plist", path)
}
