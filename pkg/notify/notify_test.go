package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingNotifier struct {
	title, body string
	calls       int
	err         error
}

func (r *recordingNotifier) Notify(title, body string) error {
	r.calls++
	r.title, r.body = title, body
	return r.err
}

func TestNotifyConflictsSkipsWhenZero(t *testing.T) {
	n := &recordingNotifier{}
	require := assert.New(t)
	err := NotifyConflicts(n, 0)
	require.NoError(err)
	require.Equal(0, n.calls)
}

func TestNotifyConflictsSingular(t *testing.T) {
	n := &recordingNotifier{}
	err := NotifyConflicts(n, 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, n.calls)
	assert.Contains(t, n.body, "1 file conflict detected")
}

func TestNotifyConflictsPlural(t *testing.T) {
	n := &recordingNotifier{}
	err := NotifyConflicts(n, 3)
	assert.NoError(t, err)
	assert.Contains(t, n.body, "3 file conflicts detected")
}

func TestNotifyConflictsPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	n := &recordingNotifier{err: boom}
	err := NotifyConflicts(n, 2)
	assert.ErrorIs(t, err, boom)
}

func TestNotifyDeferredCasksSkipsWhenEmpty(t *testing.T) {
	n := &recordingNotifier{}
	err := NotifyDeferredCasks(n, nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, n.calls)
}

func TestNotifyDeferredCasksSingular(t *testing.T) {
	n := &recordingNotifier{}
	err := NotifyDeferredCasks(n, []string{"docker"})
	assert.NoError(t, err)
	assert.Contains(t, n.body, "1 package needs your password")
	assert.Contains(t, n.body, "docker")
}

func TestNotifyDeferredCasksPlural(t *testing.T) {
	n := &recordingNotifier{}
	err := NotifyDeferredCasks(n, []string{"docker", "virtualbox"})
	assert.NoError(t, err)
	assert.Contains(t, n.body, "2 packages need your password")
	assert.Contains(t, n.body, "docker, virtualbox")
}

func TestQuoteAppleScriptEscapesDoubleQuotes(t *testing.T) {
	assert.Equal(t, `"say \"hi\""`, quoteAppleScript(`say "hi"`))
}

func TestPSQuoteEscapesSingleQuotes(t *testing.T) {
	assert.Equal(t, `'it''s fine'`, psQuote("it's fine"))
}

func TestNewReturnsNotifier(t *testing.T) {
	n := New()
	assert.NotNil(t, n)
}
