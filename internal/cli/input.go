package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// Test seams for terminal interaction. Tests replace these to drive
// password prompts without a TTY.
var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

// ReadLine reads a single line from r with the trailing newline trimmed.
// If EOF occurs after some input was read, the partial line is returned.
func ReadLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Prompt prints a prompt to w and reads a single line from r.
func Prompt(r *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	return ReadLine(r)
}

// ReadPassword prints a prompt to w and reads a password without echo when
// stdin is a terminal. Piped input falls back to a plain line read from r so
// scripted use keeps working.
func ReadPassword(r *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}

	fd := int(syscall.Stdin)
	if isTerminal(fd) {
		pw, err := readPassword(fd)
		fmt.Fprintln(w)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	return ReadLine(r)
}
