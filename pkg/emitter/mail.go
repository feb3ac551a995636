package emitter

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/gotx/pkg/errors"
)

// MailSettings configure the mail emitter.
type MailSettings struct {
	Host     string   `yaml:"host" toml:"host"`
	Port     int      `yaml:"port,omitempty" toml:"port,omitempty"`
	From     string   `yaml:"from" toml:"from"`
	To       []string `yaml:"to" toml:"to"`
	Username string   `yaml:"username,omitempty" toml:"username,omitempty"`
	Password string   `yaml:"password,omitempty" toml:"password,omitempty"`
}

// Mail sends messages over SMTP.
type Mail struct {
	addr string
	from string
	to   []string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now  func() time.Time
}

// NewMail returns a mail emitter.
func NewMail(s MailSettings) (*Mail, error) {
	if s.Host == "" || s.From == "" || len(s.To) == 0 {
		return nil, fmt.Errorf("%w: mail emitter needs host, from and to", errors.ErrConfigValidation)
	}
	port := s.Port
	if port == 0 {
		port = 25
	}
	m := &Mail{
		addr: net.JoinHostPort(s.Host, strconv.Itoa(port)),
		from: s.From,
		to:   s.To,
		send: smtp.SendMail,
		now:  time.Now,
	}
	if s.Username != "" {
		m.auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	return m, nil
}

// Name returns "mail".
func (m *Mail) Name() string { return NameMail }

// Send delivers msg to every recipient.
func (m *Mail) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	for _, line := range msg.Lines {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	return m.send(m.addr, m.auth, m.from, m.to, []byte(b.String()))
}
