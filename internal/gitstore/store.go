// Package gitstore wraps the git-backed content store every sync profile
// (personal, team, or collab) clones locally. It prefers go-git for
// read-mostly operations and falls back to the git CLI for the rebase
// and reset plumbing go-git does not expose, mirroring the go-git-first,
// exec-fallback pattern the teacher uses for repository inspection.
package gitstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/plumbing/transport"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// ErrRebaseInProgress is returned by operations that refuse to run while
// a prior rebase is left unresolved on disk.
var ErrRebaseInProgress = errors.New("a rebase is already in progress in this repository")

// Store is a single local clone of a content-store remote.
type Store struct {
	dir string
}

// Open opens an existing local clone at dir without touching the network.
func Open(dir string) (*Store, error) {
	if _, err := git.PlainOpen(dir); err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Clone clones remoteURL into dir, creating parent directories as needed.
// If dir already contains a repository, Clone opens it instead of
// re-cloning (idempotent first-run behavior).
func Clone(ctx context.Context, remoteURL, dir string) (*Store, error) {
	if _, err := git.PlainOpen(dir); err == nil {
		return &Store{dir: dir}, nil
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o750); err != nil {
		return nil, fmt.Errorf("create parent directory: %w", err)
	}
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:  remoteURL,
		Auth: sshAuth(remoteURL),
	})
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", remoteURL, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the local working directory for this store.
func (s *Store) Dir() string { return s.dir }

// Fetch fetches from origin. A nil error on "already up to date" is
// treated the same as a successful fetch.
func (s *Store) Fetch(ctx context.Context) error {
	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return err
	}
	remoteURL, _ := s.RemoteURL()
	err = repo.FetchContext(ctx, &git.FetchOptions{RemoteName: "origin", Auth: sshAuth(remoteURL)})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

// RevParseHEAD returns the current HEAD commit hash.
func (s *Store) RevParseHEAD() (string, error) {
	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// RemoteBranchExists reports whether origin/branch exists after the last fetch.
func (s *Store) RemoteBranchExists(branch string) (bool, error) {
	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return false, err
	}
	refs, err := repo.References()
	if err != nil {
		return false, err
	}
	want := plumbing.NewRemoteReferenceName("origin", branch)
	found := false
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name() == want {
			found = true
		}
		return nil
	})
	return found, err
}

// RemoteURL returns the configured origin URL.
func (s *Store) RemoteURL() (string, error) {
	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return "", err
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("lookup origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("origin remote has no URL")
	}
	return urls[0], nil
}

// StatusPorcelain returns `git status --porcelain`-equivalent entries via
// go-git's worktree status, for callers that need a quick dirty check
// without shelling out.
func (s *Store) StatusPorcelain() (map[string]string, error) {
	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	st, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}
	out := make(map[string]string, len(st))
	for path, s := range st {
		out[path] = string(s.Staging) + string(s.Worktree)
	}
	return out, nil
}

// Commit stages all changes and commits them with message, author name,
// and email. Returns the empty string with no error if there was nothing
// to commit.
func (s *Store) Commit(message, authorName, authorEmail string) (string, error) {
	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("stage changes: %w", err)
	}
	st, err := wt.Status()
	if err != nil {
		return "", err
	}
	if st.IsClean() {
		return "", nil
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}

// Push pushes the current branch to origin. Authentication is resolved
// from the ambient SSH agent / known_hosts, matching how the teacher's
// go-git usage defers to the environment rather than embedding
// credentials.
func (s *Store) Push(ctx context.Context) error {
	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return err
	}
	remoteURL, _ := s.RemoteURL()
	err = repo.PushContext(ctx, &git.PushOptions{RemoteName: "origin", Auth: sshAuth(remoteURL)})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		if errors.Is(err, transport.ErrAuthenticationRequired) {
			return fmt.Errorf("push: authentication required (configure an SSH key via ssh-agent): %w", err)
		}
		return fmt.Errorf("push: %w", err)
	}
	return nil
}

// Rebase rebases the current branch onto origin/branch using the git
// CLI: go-git has no rebase plumbing, so this is the one operation that
// always shells out rather than falling back only when go-git fails.
func (s *Store) Rebase(ctx context.Context, branch string) error {
	if s.StaleRebase() {
		return ErrRebaseInProgress
	}
	_, err := runGitContext(ctx, s.dir, "rebase", "origin/"+branch)
	if err != nil {
		return fmt.Errorf("rebase onto origin/%s: %w", branch, err)
	}
	return nil
}

// AbortRebase runs `git rebase --abort`, used when phase3 conflict
// detection decides a local rebase cannot be completed automatically.
func (s *Store) AbortRebase(ctx context.Context) error {
	_, err := runGitContext(ctx, s.dir, "rebase", "--abort")
	if err != nil {
		return fmt.Errorf("abort rebase: %w", err)
	}
	return nil
}

// ResetHard resets the working tree and index to ref, discarding local
// modifications. Used only after a conflict has been durably recorded.
func (s *Store) ResetHard(ctx context.Context, ref string) error {
	_, err := runGitContext(ctx, s.dir, "reset", "--hard", ref)
	if err != nil {
		return fmt.Errorf("reset --hard %s: %w", ref, err)
	}
	return nil
}

// StaleRebase reports whether .git/rebase-apply or .git/rebase-merge
// exists, meaning a previous tick's rebase never completed.
func (s *Store) StaleRebase() bool {
	for _, name := range []string{"rebase-apply", "rebase-merge"} {
		if _, err := os.Stat(filepath.Join(s.dir, ".git", name)); err == nil {
			return true
		}
	}
	return false
}

// Log returns up to n most recent commit messages on the current branch,
// newest first, for the `tether history` command.
func (s *Store) Log(n int) ([]string, error) {
	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if err != nil {
		return nil, err
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	defer iter.Close()

	var messages []string
	err = iter.ForEach(func(c *object.Commit) error {
		if len(messages) >= n {
			return storer.ErrStop
		}
		messages = append(messages, strings.TrimSpace(c.Message))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// sshAuth resolves a public-key transport.AuthMethod from the ambient
// SSH agent when the remote URL uses the ssh scheme; go-git falls back
// to an unauthenticated attempt otherwise.
func sshAuth(remoteURL string) transport.AuthMethod {
	if !strings.Contains(remoteURL, "@") {
		return nil
	}
	auth, err := gitssh.NewSSHAgentAuth("git")
	if err != nil {
		return nil
	}
	return auth
}

func runGit(dir string, args ...string) (string, error) {
	return runGitContext(context.Background(), dir, args...)
}

func runGitContext(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return stdout.String(), fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return stdout.String(), err
	}
	return stdout.String(), nil
}
