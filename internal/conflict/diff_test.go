package conflict

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffIdenticalTextsAreAllEqual(t *testing.T) {
	text := []byte("a\nb\nc\n")
	lines := Diff(text, text)
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Equal(t, DiffEqual, l.Op)
	}
}

func TestDiffDetectsAddedAndRemovedLines(t *testing.T) {
	a := []byte("one\ntwo\nthree\n")
	b := []byte("one\nthree\nfour\n")

	lines := Diff(a, b)
	var adds, removes int
	for _, l := range lines {
		switch l.Op {
		case DiffAdd:
			adds++
		case DiffRemove:
			removes++
		}
	}
	assert.Equal(t, 1, removes) // "two" removed
	assert.Equal(t, 1, adds)    // "four" added
}

func TestDiffTruncatesAt50Lines(t *testing.T) {
	var aBuilder, bBuilder strings.Builder
	for i := 0; i < 100; i++ {
		aBuilder.WriteString("a-line\n")
		bBuilder.WriteString("b-line\n")
	}
	lines := Diff([]byte(aBuilder.String()), []byte(bBuilder.String()))
	require.Len(t, lines, 51)
	assert.Equal(t, "...", lines[50].Text)
}

func TestDiffEmptyInputs(t *testing.T) {
	lines := Diff(nil, nil)
	assert.Empty(t, lines)
}
