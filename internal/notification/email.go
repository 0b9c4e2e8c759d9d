package notification

import (
	"context"

	"github.com/pulsetrack/pulsetrack/internal/models"
)

// EmailProvider delivers alerts to email channels through the Mailer.
type EmailProvider struct {
	mailer *Mailer
}

func (e *EmailProvider) Name() string {
	return models.ChannelEmail
}

func (e *EmailProvider) Send(ctx context.Context, channel *models.Channel, message *Message) error {
	return e.mailer.Send(channel.Value, message.Title, FormatMessage(message))
}
