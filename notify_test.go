package cfddns

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

func TestNewMessage(t *testing.T) {
	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msg, err := newMessage(Mail{
		From:    "cfddns@example.com",
		To:      "Admin <admin@example.com>",
		Subject: "cfddns",
		Body:    "start: x\nupdating: a.example.com 192.0.2.1 -> 192.0.2.2\r\ndone: y",
	}, date)
	if err != nil {
		t.Fatalf("newMessage failed: %s", err)
	}
	var b bytes.Buffer
	if _, err := msg.WriteTo(&b); err != nil {
		t.Fatalf("WriteTo failed: %s", err)
	}
	s := b.String()

	for _, want := range []string{
		"cfddns@example.com",
		"admin@example.com",
		"Subject: cfddns\r\n",
		"Date: Fri, 01 Mar 2024 12:00:00 +0000\r\n",
		"text/plain",
		"start: x",
		"updating: a.example.com 192.0.2.1 -> 192.0.2.2",
		"done: y",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected message to contain %q; got:\n%s", want, s)
		}
	}

	from, err := msg.GetSender(false)
	if err != nil || from != "cfddns@example.com" {
		t.Errorf("Expected envelope sender cfddns@example.com; got %q, %v", from, err)
	}
	rcpts, err := msg.GetRecipients()
	if err != nil || len(rcpts) != 1 || rcpts[0] != "admin@example.com" {
		t.Errorf("Expected envelope recipient admin@example.com; got %q, %v", rcpts, err)
	}
}

func TestNewMessageRejects(t *testing.T) {
	for _, m := range []Mail{
		{From: "a@example.com", To: "b@example.com\r\nBcc: c@example.com", Subject: "x"},
		{From: "a@example.com\n", To: "b@example.com", Subject: "x"},
		{From: "a@example.com", To: "b@example.com", Subject: "x\r\nX-Injected: 1"},
		{From: "nobody", To: "b@example.com", Subject: "x"},
		{From: "a@example.com", To: "", Subject: "x"},
	} {
		if _, err := newMessage(m, time.Now()); err == nil {
			t.Errorf("Expected an error for %+v", m)
		}
	}
}

func TestSplitSMTPAddr(t *testing.T) {
	host, port, err := SplitSMTPAddr("mail.example.com:2525")
	if err != nil {
		t.Fatalf("SplitSMTPAddr failed: %s", err)
	}
	if host != "mail.example.com" || port != 2525 {
		t.Errorf("Expected mail.example.com 2525; got %s %d", host, port)
	}
	for _, bad := range []string{"mailhost", ":25", "mailhost:smtp", "mailhost:0", "mailhost:70000", ""} {
		if _, _, err := SplitSMTPAddr(bad); err == nil {
			t.Errorf("SplitSMTPAddr(%q): expected an error", bad)
		}
	}
}

// fakeSMTP accepts a single session and returns every line the client sent.
func fakeSMTP(t *testing.T) (addr string, done <-chan []string) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	t.Cleanup(func() { l.Close() })

	ch := make(chan []string, 1)
	go func() {
		var lines []string
		defer func() { ch <- lines }()

		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(s string) { fmt.Fprintf(conn, "%s\r\n", s) }

		reply("220 fake ESMTP")
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			lines = append(lines, line)
			if inData {
				if line == "." {
					inData = false
					reply("250 queued")
				}
				continue
			}
			switch cmd := strings.ToUpper(strings.SplitN(line, " ", 2)[0]); cmd {
			case "EHLO", "HELO":
				reply("250 fake")
			case "MAIL", "RCPT", "NOOP", "RSET":
				reply("250 ok")
			case "DATA":
				inData = true
				reply("354 go ahead")
			case "QUIT":
				reply("221 bye")
				return
			default:
				reply("502 unsupported")
			}
		}
	}()
	return l.Addr().String(), ch
}

func TestSMTPNotifier(t *testing.T) {
	addr, done := fakeSMTP(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := SMTPNotifier{Addr: addr}.Notify(ctx, Mail{
		From:    "cfddns <cfddns@example.com>",
		To:      "Admin <admin@example.com>",
		Subject: "cfddns",
		Body:    "creating: home.example.com 192.0.2.1",
	})
	if err != nil {
		t.Fatalf("Notify failed: %s", err)
	}

	lines := <-done
	session := strings.Join(lines, "\n")
	for _, want := range []string{
		"MAIL FROM:<cfddns@example.com>",
		"RCPT TO:<admin@example.com>",
		"Subject: cfddns",
		"creating: home.example.com 192.0.2.1",
		"QUIT",
	} {
		if !strings.Contains(session, want) {
			t.Errorf("Expected session to contain %q; got:\n%s", want, session)
		}
	}
	for _, line := range lines {
		if strings.HasPrefix(line, "MAIL FROM:") || strings.HasPrefix(line, "RCPT TO:") {
			if strings.Count(line, "<") != 1 {
				t.Errorf("Expected a bare envelope address; got %q", line)
			}
		}
	}
}

func TestSMTPNotifierUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	addr := l.Addr().String()
	l.Close()

	err = SMTPNotifier{Addr: addr}.Notify(context.Background(), Mail{From: "a@example.com", To: "b@example.com"})
	if err == nil {
		t.Fatalf("Expected an error; got err == nil")
	}
}

func TestSMTPNotifierBadAddr(t *testing.T) {
	err := SMTPNotifier{Addr: "mailhost"}.Notify(context.Background(), Mail{From: "a@example.com", To: "b@example.com"})
	if err == nil {
		t.Fatalf("Expected an error; got err == nil")
	}
}
