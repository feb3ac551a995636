// Package emitter reports finished transactions. A Formatter renders a
// commit result into a Message and every configured Emitter delivers it:
// to the terminal, to the stdin of a command, or by mail.
package emitter

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/orchestrator"
)

// Emitter names.
const (
	NameConsole = "console"
	NameCommand = "command"
	NameMail    = "mail"
)

// Message is a rendered transaction report.
type Message struct {
	Subject string
	Lines   []string
	Failed  bool
}

// Body returns the lines joined by newlines.
func (m Message) Body() string {
	return strings.Join(m.Lines, "\n") + "\n"
}

// Emitter delivers messages.
type Emitter interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Formatter renders commit results.
type Formatter struct {
	Hostname string
}

// NewFormatter returns a formatter naming the local host.
func NewFormatter() *Formatter {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return &Formatter{Hostname: host}
}

// Format renders res.
func (f *Formatter) Format(res *orchestrator.Result) Message {
	msg := Message{Failed: !res.Succeeded() && res.Code != orchestrator.CodeNothingToDo}
	switch {
	case res.Code == orchestrator.CodeNothingToDo:
		msg.Subject = fmt.Sprintf("gotx on %s: nothing to do", f.Hostname)
	case res.Succeeded():
		msg.Subject = fmt.Sprintf("gotx on %s: %d packages changed", f.Hostname, len(res.Applied))
	default:
		msg.Subject = fmt.Sprintf("gotx on %s: transaction failed", f.Hostname)
	}

	msg.Lines = append(msg.Lines, fmt.Sprintf("Transaction %s", res.ID))
	if !res.Begin.IsZero() {
		msg.Lines = append(msg.Lines, fmt.Sprintf("Started %s, took %s", res.Begin.Format("2006-01-02 15:04:05"), res.End.Sub(res.Begin).Round(time.Millisecond)))
	}
	if res.UnitID > 0 {
		msg.Lines = append(msg.Lines, fmt.Sprintf("History id %d", res.UnitID))
	}
	if len(res.Applied) > 0 {
		msg.Lines = append(msg.Lines, "", "Applied:")
		for _, it := range res.Applied {
			msg.Lines = append(msg.Lines, "  "+it.String())
		}
	}
	if len(res.Failed) > 0 {
		msg.Lines = append(msg.Lines, "", "Failed:")
		for _, e := range res.Failed {
			msg.Lines = append(msg.Lines, fmt.Sprintf("  %s: %s", e.Ref, e.Message))
		}
	}
	if msg.Failed && len(res.Failed) == 0 {
		msg.Lines = append(msg.Lines, "", fmt.Sprintf("Stopped in phase %s", res.Phase))
	}
	return msg
}

// Reporter formats a result once and sends it through every emitter. It
// implements orchestrator.Reporter.
type Reporter struct {
	Formatter *Formatter
	Emitters  []Emitter
}

var _ orchestrator.Reporter = (*Reporter)(nil)

// Report sends res through every emitter. Every emitter is tried; the
// failures are joined.
func (r *Reporter) Report(ctx context.Context, res *orchestrator.Result) error {
	msg := r.Formatter.Format(res)
	var errs []error
	for _, e := range r.Emitters {
		if err := e.Send(ctx, msg); err != nil {
			errs = append(errs, errors.Wrapf(err, "%s emitter", e.Name()))
			continue
		}
		logger.Debug("Transaction reported", logger.Fields{"emitter": e.Name(), "id": res.ID})
	}
	return errors.Join(errs...)
}

// Settings select and configure emitters.
type Settings struct {
	Names   []string
	Command []string
	Mail    MailSettings

	Out     io.Writer
	NoColor bool
}

// New builds a reporter for the named emitters.
func New(s Settings) (*Reporter, error) {
	r := &Reporter{Formatter: NewFormatter()}
	for _, name := range s.Names {
		switch name {
		case NameConsole:
			out := s.Out
			if out == nil {
				out = os.Stdout
			}
			r.Emitters = append(r.Emitters, NewConsole(out, s.NoColor))
		case NameCommand:
			if len(s.Command) == 0 {
				return nil, fmt.Errorf("%w: command emitter needs a command", errors.ErrConfigValidation)
			}
			r.Emitters = append(r.Emitters, &Command{Path: s.Command[0], Args: s.Command[1:]})
		case NameMail:
			m, err := NewMail(s.Mail)
			if err != nil {
				return nil, err
			}
			r.Emitters = append(r.Emitters, m)
		default:
			return nil, errors.ErrInvalidEmitterWithDetails(name)
		}
	}
	return r, nil
}
