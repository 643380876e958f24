package packages

import "github.com/tether-sh/tether/internal/state"

// Union computes the set union of packages[k] across every machine's
// state, minus the receiving machine's own removed_packages[k] — the
// manifest written to manifests/<file> for manager key.
//
// Union rule: union(all machines' packages[k]) minus receiver's
// removed_packages[k]. A package tombstoned elsewhere is still offered
// to a machine that never removed it.
func Union(machines []*state.MachineState, receiver *state.MachineState, key string) []string {
	seen := map[string]struct{}{}
	for _, m := range machines {
		for _, name := range m.Packages[key] {
			seen[name] = struct{}{}
		}
	}
	var removed map[string]struct{}
	if receiver != nil {
		removed = map[string]struct{}{}
		for _, name := range receiver.RemovedPackages[key] {
			removed[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		if removed != nil {
			if _, tombstoned := removed[name]; tombstoned {
				continue
			}
		}
		out = append(out, name)
	}
	return out
}

// Missing computes the import set for a manager on the receiving
// machine: (union ∖ locallyInstalled) ∖ removed_packages[k].
func Missing(union, locallyInstalled []string, receiver *state.MachineState, key string) []string {
	installed := toSet(locallyInstalled)
	var removed map[string]struct{}
	if receiver != nil {
		removed = toSet(receiver.RemovedPackages[key])
	}
	var out []string
	for _, name := range union {
		if _, ok := installed[name]; ok {
			continue
		}
		if removed != nil {
			if _, tombstoned := removed[name]; tombstoned {
				continue
			}
		}
		out = append(out, name)
	}
	return out
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
