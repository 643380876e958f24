package packages

import (
	"context"
	"fmt"
	"strings"
)

// Winget manages `winget install`/`winget list` on Windows.
type Winget struct{ cliAdapter }

func NewWinget() *Winget {
	return &Winget{cliAdapter{
		key:    "winget",
		binary: "winget",
		listArgs: []string{
			"list", "--accept-source-agreements", "--disable-interactivity",
		},
		installArgs: func(name string) []string {
			return []string{"install", "--exact", "--id", name, "--accept-package-agreements", "--accept-source-agreements", "--silent"}
		},
		uninstallArgs: func(name string) []string {
			return []string{"uninstall", "--exact", "--id", name, "--accept-source-agreements", "--silent"}
		},
		updateAllArgs: []string{
			"upgrade", "--all", "--accept-package-agreements", "--accept-source-agreements", "--silent",
		},
		manifestFilename: "winget.txt",
	}}
}

// ListInstalled overrides cliAdapter's plain-line split because `winget
// list` prints a padded column table with a header and separator row;
// the package Id is the second column.
func (w *Winget) ListInstalled(ctx context.Context) ([]string, error) {
	out, err := runCLI(ctx, w.binary, w.listArgs...)
	if err != nil {
		return nil, fmt.Errorf("winget: list installed: %w", err)
	}
	lines := strings.Split(out, "\n")
	headerIdx := -1
	var idCol int
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "Name") && strings.Contains(line, "Id") {
			headerIdx = i
			idCol = strings.Index(line, "Id")
			break
		}
	}
	if headerIdx == -1 {
		return nil, nil
	}
	var names []string
	for _, line := range lines[headerIdx+1:] {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "---") {
			continue
		}
		if idCol >= len(line) {
			continue
		}
		rest := line[idCol:]
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		names = append(names, fields[0])
	}
	return names, nil
}

func (w *Winget) ExportManifest(names []string) (string, error) {
	return strings.Join(names, "\n") + "\n", nil
}

func (w *Winget) ImportManifest(text string) ([]string, error) {
	return splitNonEmptyLines(text), nil
}
