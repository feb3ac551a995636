package emitter

import (
	"context"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Console prints messages to a terminal.
type Console struct {
	out    io.Writer
	title  *color.Color
	good   *color.Color
	bad    *color.Color
	header *color.Color
}

// NewConsole returns a console emitter writing to out.
func NewConsole(out io.Writer, noColor bool) *Console {
	c := &Console{
		out:    out,
		title:  color.New(color.Bold),
		good:   color.New(color.FgGreen),
		bad:    color.New(color.FgRed),
		header: color.New(color.FgCyan),
	}
	if noColor {
		for _, col := range []*color.Color{c.title, c.good, c.bad, c.header} {
			col.DisableColor()
		}
	}
	return c
}

// Name returns "console".
func (c *Console) Name() string { return NameConsole }

// Send prints msg.
func (c *Console) Send(_ context.Context, msg Message) error {
	if _, err := c.title.Fprintln(c.out, msg.Subject); err != nil {
		return err
	}
	section := ""
	for _, line := range msg.Lines {
		var err error
		switch {
		case strings.HasSuffix(line, ":") && !strings.HasPrefix(line, " "):
			section = line
			_, err = c.header.Fprintln(c.out, line)
		case section == "Failed:" && line != "":
			_, err = c.bad.Fprintln(c.out, line)
		case section == "Applied:" && line != "":
			_, err = c.good.Fprintln(c.out, line)
		default:
			_, err = io.WriteString(c.out, line+"\n")
		}
		if err != nil {
			return err
		}
	}
	return nil
}
