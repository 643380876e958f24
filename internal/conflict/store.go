package conflict

import (
	"fmt"

	"github.com/tether-sh/tether/internal/state"
)

// Store wraps the local conflicts.json, giving the sync engine and the
// `tether conflicts` CLI subcommands a single place to list, add, and
// resolve pending conflicts.
type Store struct {
	dir     string
	pending []state.PendingConflict
}

// Open loads the pending-conflict set from dir (a tether home directory).
func Open(dir string) (*Store, error) {
	pending, err := state.LoadPendingConflicts(dir)
	if err != nil {
		return nil, fmt.Errorf("conflict: open store: %w", err)
	}
	return &Store{dir: dir, pending: pending}, nil
}

// Save persists the current pending-conflict set.
func (s *Store) Save() error {
	return state.SavePendingConflicts(s.dir, s.pending)
}

// List returns every pending conflict, in the order they were recorded.
func (s *Store) List() []state.PendingConflict {
	out := make([]state.PendingConflict, len(s.pending))
	copy(out, s.pending)
	return out
}

// Add records a new pending conflict for path, replacing any existing
// entry for the same path (a path can only have one live conflict).
func (s *Store) Add(c state.PendingConflict) {
	for i, existing := range s.pending {
		if existing.Path == c.Path {
			s.pending[i] = c
			return
		}
	}
	s.pending = append(s.pending, c)
}

// Get returns the pending conflict for path, if any.
func (s *Store) Get(path string) (state.PendingConflict, bool) {
	for _, c := range s.pending {
		if c.Path == path {
			return c, true
		}
	}
	return state.PendingConflict{}, false
}

// Clear removes the pending conflict for path, e.g. after a
// keep-local/use-remote/successful-merge resolution. It is a no-op if
// no conflict is recorded for path, satisfying the "skip" resolution
// action's retry-next-tick semantics.
func (s *Store) Clear(path string) {
	out := s.pending[:0]
	for _, c := range s.pending {
		if c.Path != path {
			out = append(out, c)
		}
	}
	s.pending = out
}
