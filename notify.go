package cfddns

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

// DefaultSMTPAddr is the local mail relay.
const DefaultSMTPAddr = "localhost:25"

// SMTPNotifier sends notifications through an SMTP relay without authentication or TLS.
type SMTPNotifier struct {
	// Addr is host:port of the relay. DefaultSMTPAddr is used when empty.
	Addr string
}

// Notify implements cfddns.Notifier.
//
// From and To may carry a display name ("Admin <admin@example.com>");
// only the bare address is used for the SMTP envelope.
func (n SMTPNotifier) Notify(ctx context.Context, m Mail) error {
	addr := n.Addr
	if addr == "" {
		addr = DefaultSMTPAddr
	}
	host, port, err := SplitSMTPAddr(addr)
	if err != nil {
		return err
	}
	msg, err := newMessage(m, time.Now())
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.NoTLS),
	}
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 {
			opts = append(opts, mail.WithTimeout(d))
		}
	}
	c, err := mail.NewClient(host, opts...)
	if err != nil {
		return fmt.Errorf("error creating mail client for %s: %w", addr, err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("error sending mail through %s: %w", addr, err)
	}
	return nil
}

// SplitSMTPAddr splits a relay address of the form host:port.
func SplitSMTPAddr(addr string) (host string, port int, err error) {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid smtp address %q: %w", addr, err)
	}
	if host == "" {
		return "", 0, fmt.Errorf("invalid smtp address %q: missing host", addr)
	}
	port, err = strconv.Atoi(p)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid smtp address %q: bad port %q", addr, p)
	}
	return host, port, nil
}

// newMessage renders m as a plain text message.
func newMessage(m Mail, date time.Time) (*mail.Msg, error) {
	for _, v := range []string{m.From, m.To, m.Subject} {
		if strings.ContainsAny(v, "\r\n") {
			return nil, fmt.Errorf("mail header %q contains a line break", v)
		}
	}
	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.From, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", m.To, err)
	}
	msg.Subject(m.Subject)
	msg.SetDateWithValue(date)
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, m.Body)
	return msg, nil
}
