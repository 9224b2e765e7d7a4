package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// errPromptAborted is returned when the user presses Ctrl+C or Ctrl+D at a
// prompt.
var errPromptAborted = errors.New("aborted")

// prompter asks the user for input during login.
type prompter interface {
	Line(prompt string) (string, error)
	Password(prompt string) (string, error)
	Close() error
}

// readlinePrompter reads from the terminal. Passwords are masked.
type readlinePrompter struct {
	rl *readline.Instance
}

func newReadlinePrompter(stdin io.ReadCloser, stdout, stderr io.Writer) (*readlinePrompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		HistoryLimit:    -1,
		InterruptPrompt: "^C",
		EOFPrompt:       "",
		Stdin:           stdin,
		Stdout:          stdout,
		Stderr:          stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline instance: %w", err)
	}
	return &readlinePrompter{rl: rl}, nil
}

func (p *readlinePrompter) Line(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	line, err := p.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", errPromptAborted
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *readlinePrompter) Password(prompt string) (string, error) {
	pw, err := p.rl.ReadPassword(prompt)
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", errPromptAborted
	}
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func (p *readlinePrompter) Close() error {
	return p.rl.Close()
}
