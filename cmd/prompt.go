package cmd

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// promptPassphrase prints label to stderr and reads a line from the
// terminal without echoing it back, falling back to a plain Scanln when
// stdin isn't a terminal (piped input, tests).
func promptPassphrase(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read passphrase: %w", err)
		}
		return string(data), nil
	}

	var line string
	if _, err := fmt.Scanln(&line); err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return line, nil
}
