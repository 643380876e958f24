// Package collab implements the secondary, collaborator-shared repo:
// the recipient set derived from source-hosting collaborator lists, the
// drift-reporting refresh cycle, and join-time collaborator
// verification.
package collab

import (
	"context"
	"sort"
)

// Recipient is one entry of recipients/<username>.pub in the collab
// repo: the username that owns the key and its age-format public key.
type Recipient struct {
	Username  string
	PublicKey string
}

// RecipientSet is the physical set of recipients/*.pub files present in
// the collab repo, independent of who the source host currently lists
// as a collaborator — the distinction §4.4 and scenario S6 depend on.
type RecipientSet struct {
	byUsername map[string]Recipient
}

// NewRecipientSet builds a set from the recipients currently on disk.
func NewRecipientSet(recipients []Recipient) *RecipientSet {
	set := &RecipientSet{byUsername: make(map[string]Recipient, len(recipients))}
	for _, r := range recipients {
		set.byUsername[r.Username] = r
	}
	return set
}

// Usernames returns every recipient's username, sorted.
func (s *RecipientSet) Usernames() []string {
	out := make([]string, 0, len(s.byUsername))
	for u := range s.byUsername {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// PublicKeys returns every recipient's public key, in the same order as Usernames.
func (s *RecipientSet) PublicKeys() []string {
	usernames := s.Usernames()
	out := make([]string, 0, len(usernames))
	for _, u := range usernames {
		out = append(out, s.byUsername[u].PublicKey)
	}
	return out
}

// Has reports whether username has a recipient key on file.
func (s *RecipientSet) Has(username string) bool {
	_, ok := s.byUsername[username]
	return ok
}

// DriftReport names recipients present on disk whose username is no
// longer a collaborator on any configured project — present but not
// authorized. Per §4.4, drifted keys are surfaced, never deleted
// automatically.
type DriftReport struct {
	Drifted   []string
	Authorized []string
}

// SourceHost abstracts the collaborator-listing API of whichever
// source-hosting provider a project is hosted on. The concrete GitHub
// implementation lives in github.go; no auth flow is implemented here,
// per the bootstrap-flow exclusion — callers supply an already-
// authenticated client.
type SourceHost interface {
	ListCollaborators(ctx context.Context, normalizedURL string) ([]string, error)
}

// Refresh computes the current collaborator union across projects,
// compares it to the physical recipient set on disk, and returns a
// DriftReport. It never mutates recipients — callers apply the
// "physical set" rule (encrypt to everyone on disk, author the
// authorized list from the live collaborator union) separately.
func Refresh(ctx context.Context, host SourceHost, projects []string, recipients *RecipientSet) (*DriftReport, error) {
	authorizedSet := make(map[string]struct{})
	for _, project := range projects {
		names, err := host.ListCollaborators(ctx, project)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			authorizedSet[n] = struct{}{}
		}
	}

	report := &DriftReport{}
	for _, username := range recipients.Usernames() {
		if _, ok := authorizedSet[username]; !ok {
			report.Drifted = append(report.Drifted, username)
		}
	}
	for name := range authorizedSet {
		report.Authorized = append(report.Authorized, name)
	}
	sort.Strings(report.Authorized)
	return report, nil
}

// VerifyCollaborator implements join-time verification: the joining
// user must be a collaborator on every project in projects. It returns
// the list of projects the user is NOT a collaborator on; a non-empty
// result means the join must be refused.
func VerifyCollaborator(ctx context.Context, host SourceHost, projects []string, username string) ([]string, error) {
	var notCollaboratorOn []string
	for _, project := range projects {
		names, err := host.ListCollaborators(ctx, project)
		if err != nil {
			return nil, err
		}
		found := false
		for _, n := range names {
			if n == username {
				found = true
				break
			}
		}
		if !found {
			notCollaboratorOn = append(notCollaboratorOn, project)
		}
	}
	return notCollaboratorOn, nil
}
