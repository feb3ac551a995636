package emitter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Command pipes the message body to the stdin of a program. The subject is
// passed in GOTX_SUBJECT.
type Command struct {
	Path string
	Args []string
}

// Name returns "command".
func (c *Command) Name() string { return NameCommand }

// Send runs the command and waits for it.
func (c *Command) Send(ctx context.Context, msg Message) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = strings.NewReader(msg.Body())
	cmd.Env = append(os.Environ(), "GOTX_SUBJECT="+msg.Subject)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", c.Path, err, strings.TrimSpace(out.String()))
	}
	return nil
}
