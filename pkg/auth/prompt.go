package auth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads answers from a terminal, hiding secrets when possible
type Prompter struct {
	in  io.Reader
	out io.Writer
	fd  int
	r   *bufio.Reader
}

// NewPrompter prompts on stdin/stderr
func NewPrompter() *Prompter {
	return NewPrompterWith(os.Stdin, os.Stderr, int(os.Stdin.Fd()))
}

// NewPrompterWith prompts on arbitrary streams. fd is the descriptor checked
// for terminal echo control; pass -1 for non-terminal input.
func NewPrompterWith(in io.Reader, out io.Writer, fd int) *Prompter {
	return &Prompter{in: in, out: out, fd: fd, r: bufio.NewReader(in)}
}

// Ask reads one line of visible input
func (p *Prompter) Ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// AskSecret reads one line with echo disabled when input is a terminal
func (p *Prompter) AskSecret(question string) (string, error) {
	if p.fd < 0 || !term.IsTerminal(p.fd) {
		return p.Ask(question)
	}

	fmt.Fprint(p.out, question)
	secret, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}
