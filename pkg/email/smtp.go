package email

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chuanghiduoc/progress-mailer/config"
)

type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.FromAddress,
		fromName: cfg.FromName,
	}
}

// Send hands the message to the relay. net/smtp has no context support, so
// ctx is only consulted before the connection is opened.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	messageID := s.newMessageID()
	raw := s.buildMessage(msg, messageID, time.Now())

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := smtp.SendMail(addr, auth, s.from, msg.To, raw); err != nil {
		return Receipt{}, fmt.Errorf("smtp: %w", err)
	}
	return Receipt{MessageID: messageID}, nil
}

func (s *SMTPSender) newMessageID() string {
	domain := s.host
	if at := strings.LastIndex(s.from, "@"); at >= 0 && at < len(s.from)-1 {
		domain = s.from[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

// buildMessage writes an RFC 5322 message with a multipart/alternative body
// when both plain and HTML parts are present.
func (s *SMTPSender) buildMessage(msg Message, messageID string, now time.Time) []byte {
	var b strings.Builder

	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	header("From", formatAddr(s.fromName, s.from))
	header("To", strings.Join(msg.To, ", "))
	header("Subject", encodeHeader(msg.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("Message-ID", messageID)
	header("MIME-Version", "1.0")

	switch {
	case msg.Text != "" && msg.HTML != "":
		boundary := "alt-" + strings.ReplaceAll(uuid.NewString(), "-", "")
		header("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", boundary))
		b.WriteString("\r\n")
		writePart(&b, boundary, "text/plain; charset=UTF-8", msg.Text)
		writePart(&b, boundary, "text/html; charset=UTF-8", msg.HTML)
		fmt.Fprintf(&b, "--%s--\r\n", boundary)
	case msg.HTML != "":
		header("Content-Type", "text/html; charset=UTF-8")
		b.WriteString("\r\n")
		b.WriteString(msg.HTML)
	default:
		header("Content-Type", "text/plain; charset=UTF-8")
		b.WriteString("\r\n")
		b.WriteString(msg.Text)
	}

	return []byte(b.String())
}

func writePart(b *strings.Builder, boundary, contentType, body string) {
	fmt.Fprintf(b, "--%s\r\n", boundary)
	fmt.Fprintf(b, "Content-Type: %s\r\n", contentType)
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
}

// encodeHeader applies RFC 2047 encoding so non-ASCII subjects survive relays.
func encodeHeader(v string) string {
	return mime.QEncoding.Encode("UTF-8", v)
}
