package email

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// ConsoleSender logs messages instead of delivering them. Used in local development.
type ConsoleSender struct{}

func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{}
}

func (s *ConsoleSender) Send(_ context.Context, msg Message) (Receipt, error) {
	id := "console-" + uuid.NewString()
	slog.Info("email sent (console driver)",
		slog.String("message_id", id),
		slog.String("to", strings.Join(msg.To, ", ")),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Text),
	)
	return Receipt{MessageID: id}, nil
}
