package providers

import (
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SMTPSender sends multipart mail through an SMTP relay
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		send:     smtp.SendMail,
	}
}

// Send sends an email via SMTP. Relays without a username are used unauthenticated.
func (s *SMTPSender) Send(to, subject, htmlBody, plainBody string) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	msg := buildMessage(s.from, to, subject, htmlBody, plainBody, time.Now())
	if err := s.send(addr, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// buildMessage assembles a multipart/alternative message. Subjects are
// RFC 2047 encoded since reports carry Japanese titles.
func buildMessage(from, to, subject, htmlBody, plainBody string, at time.Time) []byte {
	boundary := "xdash-" + uuid.NewString()

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.BEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", at.Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	msg.WriteString("\r\n")

	for _, part := range []struct{ ctype, body string }{
		{"text/plain", plainBody},
		{"text/html", htmlBody},
	} {
		fmt.Fprintf(&msg, "--%s\r\n", boundary)
		fmt.Fprintf(&msg, "Content-Type: %s; charset=\"utf-8\"\r\n", part.ctype)
		msg.WriteString("\r\n")
		msg.WriteString(part.body)
		msg.WriteString("\r\n")
	}
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return []byte(msg.String())
}
