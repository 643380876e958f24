package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string { return &s }

func TestDetectTrueConflictWhenBothDivergeFromWatermark(t *testing.T) {
	last := strptr("fp(X)")
	assert.True(t, Detect("fp(B)", "fp(A)", last))
}

func TestDetectNoConflictWhenOnlyLocalChanged(t *testing.T) {
	last := strptr("fp(X)")
	assert.False(t, Detect("fp(B)", "fp(X)", last))
}

func TestDetectNoConflictWhenOnlyRemoteChanged(t *testing.T) {
	last := strptr("fp(X)")
	assert.False(t, Detect("fp(X)", "fp(A)", last))
}

func TestDetectNoConflictWhenBothMatchWatermark(t *testing.T) {
	last := strptr("fp(X)")
	assert.False(t, Detect("fp(X)", "fp(X)", last))
}

// TestDetectDegradesToDirectCompareWithoutWatermark pins the first-sync
// case where no watermark has been recorded yet for a path.
func TestDetectDegradesToDirectCompareWithoutWatermark(t *testing.T) {
	assert.True(t, Detect("fp(B)", "fp(A)", nil))
	assert.False(t, Detect("fp(A)", "fp(A)", nil))
}
