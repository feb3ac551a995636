package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/signature"
)

// Prompter asks yes/no questions on the terminal.
type Prompter struct {
	out      io.Writer
	readLine func(prompt string) (string, error)
}

// newTerminalPrompter returns a prompter on stdin, or nil when stdin is not
// a terminal.
func newTerminalPrompter(out io.Writer) *Prompter {
	if !readline.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return &Prompter{out: out, readLine: func(prompt string) (string, error) {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:       prompt,
			Stdout:       out,
			HistoryLimit: -1,
		})
		if err != nil {
			return "", err
		}
		defer func() { _ = rl.Close() }()
		return rl.Readline()
	}}
}

// Confirm asks question until it gets a yes or no. An empty answer or end of
// input is a no; Ctrl-C interrupts.
func (p *Prompter) Confirm(question string) (bool, error) {
	for {
		line, err := p.readLine(question + " [y/N]: ")
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			return false, errors.ErrInterrupted
		case errors.Is(err, io.EOF):
			return false, nil
		case err != nil:
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		}
	}
}

// ConfirmKeyImport shows the key a package is signed with and asks whether
// to trust it.
func (p *Prompter) ConfirmKeyImport(key signature.Result, pkg *model.Package) (bool, error) {
	_, _ = fmt.Fprintf(p.out, "Importing GPG key 0x%s:\n", key.KeyID)
	if key.UserID != "" {
		_, _ = fmt.Fprintf(p.out, " Userid     : %s\n", key.UserID)
	}
	_, _ = fmt.Fprintf(p.out, " Fingerprint: %s\n", key.Fingerprint)
	_, _ = fmt.Fprintf(p.out, " Package    : %s (%s)\n", pkg.PkgRef, pkg.Repo)
	_, _ = fmt.Fprintf(p.out, " From       : %s\n", key.KeyPath)
	return p.Confirm("Is this ok")
}
