package email

import (
	"context"
	"fmt"

	"github.com/chuanghiduoc/progress-mailer/config"
)

type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Receipt is what a driver reports for an accepted message.
// MessageID is opaque to callers; it is logged and stored, never parsed.
type Receipt struct {
	MessageID string
}

// Sender delivers one message. Implementations may block and may fail for
// transient or permanent reasons; callers treat both the same way.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

func NewSender(cfg config.EmailConfig) (Sender, error) {
	var sender Sender
	switch cfg.Driver {
	case "smtp":
		sender = NewSMTPSender(cfg)
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("RESEND_API_KEY is required for resend driver")
		}
		sender = NewResendSender(cfg)
	default:
		sender = NewConsoleSender()
	}

	if cfg.RatePerSec > 0 {
		sender = NewThrottledSender(sender, cfg.RatePerSec)
	}
	return sender, nil
}

func formatAddr(name, addr string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}
