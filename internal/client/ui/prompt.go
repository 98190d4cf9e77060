package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrEmptyInput is returned when a required answer is blank.
var ErrEmptyInput = errors.New("empty input")

// Prompter reads answers from the user. On a terminal passwords are read
// without echo; otherwise they are read as plain lines so the CLI can be
// scripted.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

// NewPrompter reads from in and writes prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &Prompter{in: bufio.NewReader(in), out: out, fd: fd}
}

// Line prints prompt and returns the next line without its terminator.
// io.EOF is returned once the input is exhausted.
func (p *Prompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Password prompts for a secret. Blank answers yield ErrEmptyInput.
func (p *Prompter) Password(prompt string) (string, error) {
	var (
		secret string
		err    error
	)
	if p.fd >= 0 {
		fmt.Fprint(p.out, prompt)
		var raw []byte
		raw, err = term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		secret = string(raw)
	} else {
		secret, err = p.Line(prompt)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if secret == "" {
		return "", ErrEmptyInput
	}
	return secret, nil
}
