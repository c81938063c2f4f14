package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
)

// ErrNotInteractive is returned when a prompt is needed but stdin is not a terminal.
var ErrNotInteractive = errors.New("cannot prompt for a token: stdin is not a terminal")

// Prompter asks the user for a secret value.
type Prompter interface {
	Prompt(ctx context.Context, message string) (string, error)
}

// TerminalPrompter reads a secret from the controlling terminal without echo.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalPrompter prompts on stderr and reads from stdin.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

func (p *TerminalPrompter) Prompt(ctx context.Context, message string) (string, error) {
	fd := p.In.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return "", ErrNotInteractive
	}

	fmt.Fprint(p.Out, message)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(p.Out)
	if err != nil {
		return "", err
	}
	return string(secret), ctx.Err()
}

// ReaderPrompter reads one line from a reader. It is used when a token is
// piped in (wi login --with-token) and in tests.
type ReaderPrompter struct {
	R io.Reader
}

func (p ReaderPrompter) Prompt(ctx context.Context, _ string) (string, error) {
	line, err := bufio.NewReader(p.R).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), ctx.Err()
}
