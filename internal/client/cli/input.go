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
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
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

// GetPasscode asks for a link passcode. On a terminal the input is not
// echoed; otherwise a line is read from reader so the viewer can be scripted.
func GetPasscode(reader *bufio.Reader, w io.Writer, remaining *int) (string, error) {
	prompt := "Passcode: "
	if remaining != nil {
		prompt = fmt.Sprintf("Passcode (%d attempts left): ", *remaining)
	}

	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return GetSimpleText(reader, strings.TrimSuffix(prompt, " "), w)
	}

	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pc, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(pc)), nil
}
