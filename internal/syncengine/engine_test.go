package syncengine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWarningStringWithAndWithoutPath(t *testing.T) {
	withPath := Warning{Phase: 4, Path: "a/b", Message: "boom"}
	assert.Equal(t, "phase 4: a/b: boom", withPath.String())

	withoutPath := Warning{Phase: 11, Message: "boom"}
	assert.Equal(t, "phase 11: boom", withoutPath.String())
}

func TestTickContextWarnAppendsFormattedWarning(t *testing.T) {
	tc := &tickContext{}
	tc.warn(7, "zshrc", "encrypt failed: %v", errors.New("bad key"))
	assert.Len(t, tc.warnings, 1)
	assert.Equal(t, 7, tc.warnings[0].Phase)
	assert.Equal(t, "zshrc", tc.warnings[0].Path)
	assert.Equal(t, "encrypt failed: bad key", tc.warnings[0].Message)
}

func TestReportReflectsTickContext(t *testing.T) {
	e := &Engine{}
	tc := &tickContext{
		dryRun:        true,
		newConflicts:  2,
		commitHash:    "deadbeef",
		packagesAdded: map[string][]string{"brew": {"jq"}},
	}
	tc.warn(4, "x", "conflict")

	report := e.report(tc, true)
	assert.True(t, report.DryRun)
	assert.True(t, report.Completed)
	assert.Equal(t, 2, report.NewConflicts)
	assert.Equal(t, "deadbeef", report.CommitHash)
	assert.Equal(t, []string{"jq"}, report.PackagesAdded["brew"])
	assert.Len(t, report.Warnings, 1)
}

func TestReportNotCompletedOnAbort(t *testing.T) {
	e := &Engine{}
	tc := &tickContext{}
	report := e.report(tc, false)
	assert.False(t, report.Completed)
}

func TestNowUTCReturnsUTCLocation(t *testing.T) {
	now := nowUTC()
	assert.Equal(t, "UTC", now.Location().String())
}
