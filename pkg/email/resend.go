package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/chuanghiduoc/progress-mailer/config"
)

// ResendSender delivers through the Resend HTTP API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(cfg config.EmailConfig) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(cfg.ResendAPIKey),
		from:   formatAddr(cfg.FromName, cfg.FromAddress),
	}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		Tags: []resend.Tag{
			{Name: "category", Value: "academic_progress"},
		},
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return Receipt{}, fmt.Errorf("resend: %w", err)
	}
	return Receipt{MessageID: sent.Id}, nil
}
