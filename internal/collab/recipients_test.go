package collab

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	byProject map[string][]string
	err       error
}

func (f fakeHost) ListCollaborators(ctx context.Context, normalizedURL string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byProject[normalizedURL], nil
}

// TestRefreshReportsDriftWithoutDeleting replays scenario S6: recipients
// on disk are {alice, bob, carol}; the source host only lists {alice,
// bob} as collaborators. Refresh must report carol as drifted and the
// authorized list must be exactly {alice, bob} — carol stays a
// recipient on disk (RecipientSet is immutable here).
func TestRefreshReportsDriftWithoutDeleting(t *testing.T) {
	recipients := NewRecipientSet([]Recipient{
		{Username: "alice", PublicKey: "age1alice"},
		{Username: "bob", PublicKey: "age1bob"},
		{Username: "carol", PublicKey: "age1carol"},
	})
	host := fakeHost{byProject: map[string][]string{
		"org/repo": {"alice", "bob"},
	}}

	report, err := Refresh(context.Background(), host, []string{"org/repo"}, recipients)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, report.Drifted)
	assert.Equal(t, []string{"alice", "bob"}, report.Authorized)

	// Drifted recipient must still be present in the physical set.
	assert.True(t, recipients.Has("carol"))
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, recipients.Usernames())
}

func TestRefreshUnionsAcrossProjects(t *testing.T) {
	recipients := NewRecipientSet([]Recipient{
		{Username: "alice", PublicKey: "age1alice"},
	})
	host := fakeHost{byProject: map[string][]string{
		"org/repo-a": {"alice"},
		"org/repo-b": {"alice", "dave"},
	}}

	report, err := Refresh(context.Background(), host, []string{"org/repo-a", "org/repo-b"}, recipients)
	require.NoError(t, err)
	assert.Empty(t, report.Drifted)
	assert.ElementsMatch(t, []string{"alice", "dave"}, report.Authorized)
}

func TestVerifyCollaboratorReturnsFailingProjects(t *testing.T) {
	host := fakeHost{byProject: map[string][]string{
		"org/repo-a": {"alice"},
		"org/repo-b": {"bob"},
	}}

	missing, err := VerifyCollaborator(context.Background(), host, []string{"org/repo-a", "org/repo-b"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"org/repo-b"}, missing)
}

func TestVerifyCollaboratorPassesWhenOnAllProjects(t *testing.T) {
	host := fakeHost{byProject: map[string][]string{
		"org/repo-a": {"alice"},
		"org/repo-b": {"alice", "bob"},
	}}

	missing, err := VerifyCollaborator(context.Background(), host, []string{"org/repo-a", "org/repo-b"}, "alice")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestRecipientSetPublicKeysMatchUsernameOrder(t *testing.T) {
	set := NewRecipientSet([]Recipient{
		{Username: "zed", PublicKey: "age1zed"},
		{Username: "alice", PublicKey: "age1alice"},
	})
	assert.Equal(t, []string{"alice", "zed"}, set.Usernames())
	assert.Equal(t, []string{"age1alice", "age1zed"}, set.PublicKeys())
}
