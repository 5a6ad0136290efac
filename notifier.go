package identity

import (
	"context"
	"crypto/tls"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Notifier delivers a message to an address. Delivery is best effort: the
// flows treat failures as log-and-continue, never as request errors.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

type discardNotifier struct{}

func (discardNotifier) Send(ctx context.Context, to, subject, body string) error {
	return nil
}

// SMTPNotifier sends plain text mail over SMTP with STARTTLS when the
// server offers it and PLAIN auth when credentials are configured.
type SMTPNotifier struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

var _ Notifier = (*SMTPNotifier)(nil)

func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	return &SMTPNotifier{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
	}
}

func (m *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	var sb strings.Builder
	sb.WriteString("From: " + m.From + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	addr := net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		return err
	}
	defer c.Quit()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.Host}); err != nil {
			return err
		}
	}

	if m.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(m.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(sb.String())); err != nil {
		return err
	}

	return w.Close()
}
