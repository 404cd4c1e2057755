package mail

import (
	"context"

	"github.com/platinummonkey/critique/pkg/observability"
)

// LogMailer writes messages to the structured log instead of sending them.
// It is the development default.
type LogMailer struct {
	logger *observability.Logger
}

// NewLogMailer creates a mailer that logs through logger
func NewLogMailer(logger *observability.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.logger.WithFields(map[string]interface{}{
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Body,
	}).Info("Mail message")
	return nil
}
