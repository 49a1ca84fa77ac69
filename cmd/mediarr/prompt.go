package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// terminal implements shared.Prompter on stdin/stdout
type terminal struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func newTerminal() *terminal {
	return &terminal{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		fd:  int(os.Stdin.Fd()),
	}
}

func (t *terminal) Println(a ...any) {
	fmt.Fprintln(t.out, a...)
}

func (t *terminal) Prompt(label string) (string, error) {
	fmt.Fprint(t.out, label)
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// PromptSecret reads without echo when stdin is a terminal
func (t *terminal) PromptSecret(label string) (string, error) {
	if !term.IsTerminal(t.fd) {
		return t.Prompt(label)
	}

	fmt.Fprint(t.out, label)
	secret, err := term.ReadPassword(t.fd)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(secret), nil
}
