package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dohr-michael/askbetter/clients/api"
)

// prompter reads answers from stdin, writing questions to stderr.
type prompter struct {
	in *bufio.Reader
}

func newPrompter() *prompter {
	return &prompter{in: bufio.NewReader(os.Stdin)}
}

// line asks a question and returns the trimmed answer.
func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	s, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || s == "") {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// password reads a secret without echo when stdin is a terminal.
func (p *prompter) password(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return p.line(label)
	}
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// signIn authenticates c, prompting for whatever the flags left out.
func signIn(ctx context.Context, c *api.Client, p *prompter, email string) (*api.Session, error) {
	var err error
	if email == "" {
		if email, err = p.line("Email: "); err != nil {
			return nil, err
		}
	}
	password, err := p.password("Password: ")
	if err != nil {
		return nil, err
	}
	s, err := c.SignIn(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return s, nil
}

// terminalWidth returns the stdout width, or 80 when unknown.
func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
