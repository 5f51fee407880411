package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// PasswordChangedMailer tells account owners that their password was replaced.
type PasswordChangedMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	send     sendFunc
}

func NewPasswordChangedMailer(host, port, username, password, from string) *PasswordChangedMailer {
	return &PasswordChangedMailer{
		host:     strings.TrimSpace(host),
		port:     strings.TrimSpace(port),
		username: username,
		password: password,
		from:     strings.TrimSpace(from),
		send:     smtp.SendMail,
	}
}

// Configured reports whether enough settings are present to send mail.
func (m *PasswordChangedMailer) Configured() bool {
	return m != nil && m.host != "" && m.port != "" && m.from != ""
}

func (m *PasswordChangedMailer) SendPasswordChanged(ctx context.Context, email, username string) error {
	if !m.Configured() {
		return errors.New("mailer missing configuration")
	}
	if strings.TrimSpace(email) == "" {
		return errors.New("recipient address is empty")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	body := fmt.Sprintf("Hi %s,\n\nThe password for your TJ Destinations account was just changed.\n\n"+
		"If you did not make this change, contact the site maintainers right away.", username)

	var message strings.Builder
	fmt.Fprintf(&message, "From: %s\r\n", m.from)
	fmt.Fprintf(&message, "To: %s\r\n", email)
	message.WriteString("Subject: Your TJ Destinations password was changed\r\n")
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	message.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	message.WriteString(body)
	message.WriteString("\r\n")

	var auth smtp.Auth
	if m.username != "" || m.password != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	return m.send(net.JoinHostPort(m.host, m.port), auth, m.from, []string{email}, []byte(message.String()))
}
