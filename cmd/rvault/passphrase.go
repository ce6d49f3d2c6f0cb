package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// promptPassphrase reads a passphrase from the controlling terminal with
// echo disabled, falling back to a plain line read when stdin is not a
// terminal (piped input in scripts and tests).
func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read passphrase: %w", err)
		}
		return string(raw), nil
	}
	// Read one byte at a time so that nothing past this line is consumed
	// from stdin; later prompts and the shell read the following lines.
	var line []byte
	b := make([]byte, 1)
	for {
		if n, err := os.Stdin.Read(b); n == 0 {
			if err != nil {
				return "", fmt.Errorf("read passphrase: %w", err)
			}
		} else if b[0] == '\n' {
			return strings.TrimRight(string(line), "\r"), nil
		} else {
			line = append(line, b[0])
		}
	}
}
