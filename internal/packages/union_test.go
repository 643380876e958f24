package packages

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tether-sh/tether/internal/state"
)

func TestUnionCombinesAcrossMachines(t *testing.T) {
	a := state.NewMachineState("machine-a", "host-a", "macOS 14")
	a.Packages["brew_formula"] = []string{"jq", "ripgrep"}
	b := state.NewMachineState("machine-b", "host-b", "macOS 14")
	b.Packages["brew_formula"] = []string{"fzf"}

	union := Union([]*state.MachineState{a, b}, b, "brew_formula")
	assert.ElementsMatch(t, []string{"jq", "ripgrep", "fzf"}, union)
}

func TestUnionExcludesReceiverTombstones(t *testing.T) {
	a := state.NewMachineState("machine-a", "host-a", "macOS 14")
	a.Packages["brew_formula"] = []string{"jq", "ripgrep"}
	b := state.NewMachineState("machine-b", "host-b", "macOS 14")
	b.RemovedPackages["brew_formula"] = []string{"jq"}

	union := Union([]*state.MachineState{a, b}, b, "brew_formula")
	assert.ElementsMatch(t, []string{"ripgrep"}, union)
}

// TestTombstoneSurvivesAcrossTicks replays spec's S4 scenario: machine B
// tombstones jq, machine A still has it installed; B's missing set must
// exclude jq even though it's present in the union.
func TestTombstoneSurvivesAcrossTicks(t *testing.T) {
	a := state.NewMachineState("machine-a", "host-a", "macOS 14")
	a.Packages["brew_formula"] = []string{"jq"}
	b := state.NewMachineState("machine-b", "host-b", "macOS 14")
	b.RemovedPackages["brew_formula"] = []string{"jq"}

	union := Union([]*state.MachineState{a, b}, b, "brew_formula")
	missing := Missing(union, nil, b, "brew_formula")
	assert.NotContains(t, missing, "jq")
}

func TestMissingExcludesLocallyInstalled(t *testing.T) {
	union := []string{"jq", "ripgrep", "fzf"}
	receiver := state.NewMachineState("machine-b", "host-b", "macOS 14")

	missing := Missing(union, []string{"jq"}, receiver, "brew_formula")
	assert.ElementsMatch(t, []string{"ripgrep", "fzf"}, missing)
}

func TestMissingExcludesOwnTombstones(t *testing.T) {
	union := []string{"jq", "ripgrep"}
	receiver := state.NewMachineState("machine-b", "host-b", "macOS 14")
	receiver.RemovedPackages["brew_formula"] = []string{"ripgrep"}

	missing := Missing(union, nil, receiver, "brew_formula")
	assert.ElementsMatch(t, []string{"jq"}, missing)
}
