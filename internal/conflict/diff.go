package conflict

import "strings"

// maxDiffLines is the display truncation spec §4.2 requires.
const maxDiffLines = 50

// DiffOp names the kind of change a DiffLine represents.
type DiffOp int

const (
	DiffEqual DiffOp = iota
	DiffRemove
	DiffAdd
)

// DiffLine is one line of a line-oriented diff between two texts.
type DiffLine struct {
	Op   DiffOp
	Text string
}

// Diff computes a longest-common-subsequence line diff between a and b,
// truncated to maxDiffLines output lines. Trailing truncation is
// signaled by a final DiffLine{Op: DiffEqual, Text: "..."} sentinel so
// callers can render a "diff truncated" marker without a separate flag.
func Diff(a, b []byte) []DiffLine {
	aLines := splitLines(a)
	bLines := splitLines(b)
	lcs := lcsTable(aLines, bLines)

	var lines []DiffLine
	i, j := len(aLines), len(bLines)
	var rev []DiffLine
	for i > 0 && j > 0 {
		switch {
		case aLines[i-1] == bLines[j-1]:
			rev = append(rev, DiffLine{Op: DiffEqual, Text: aLines[i-1]})
			i--
			j--
		case lcs[i-1][j] >= lcs[i][j-1]:
			rev = append(rev, DiffLine{Op: DiffRemove, Text: aLines[i-1]})
			i--
		default:
			rev = append(rev, DiffLine{Op: DiffAdd, Text: bLines[j-1]})
			j--
		}
	}
	for i > 0 {
		rev = append(rev, DiffLine{Op: DiffRemove, Text: aLines[i-1]})
		i--
	}
	for j > 0 {
		rev = append(rev, DiffLine{Op: DiffAdd, Text: bLines[j-1]})
		j--
	}
	for k := len(rev) - 1; k >= 0; k-- {
		lines = append(lines, rev[k])
	}

	if len(lines) > maxDiffLines {
		lines = append(lines[:maxDiffLines], DiffLine{Op: DiffEqual, Text: "..."})
	}
	return lines
}

func lcsTable(a, b []string) [][]int {
	table := make([][]int, len(a)+1)
	for i := range table {
		table[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else if table[i+1][j] >= table[i][j+1] {
				table[i][j] = table[i+1][j]
			} else {
				table[i][j] = table[i][j+1]
			}
		}
	}
	return table
}

func splitLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}
