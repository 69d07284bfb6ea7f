package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

// isTerminal reports whether stdin is an interactive terminal.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// prompt prints label and reads one trimmed line. A partial last line
// before EOF is returned as input.
func prompt(reader *bufio.Reader, w io.Writer, label string) (string, error) {
	if _, err := fmt.Fprintf(w, "%s: ", label); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads a password without echo when stdin is a terminal and
// falls back to a plain line otherwise (pipes, tests).
func promptSecret(reader *bufio.Reader, w io.Writer, label string) (string, error) {
	if !isTerminal() {
		line, err := prompt(reader, w, label)
		if err != nil {
			return "", err
		}
		return line, nil
	}
	if _, err := fmt.Fprintf(w, "%s: ", label); err != nil {
		return "", err
	}
	pw, err := readPassword()
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
