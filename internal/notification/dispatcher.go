package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pulsetrack/pulsetrack/internal/config"
	"github.com/pulsetrack/pulsetrack/internal/models"
	"github.com/pulsetrack/pulsetrack/internal/store"
)

// Dispatcher fans an alert out to all channels of a check's owner.
type Dispatcher struct {
	channels store.ChannelStore
	log      *zap.Logger
}

// NewDispatcher creates a new notification dispatcher and registers the
// email provider with the configured SMTP settings.
func NewDispatcher(channels store.ChannelStore, smtp config.SMTPConfig, log *zap.Logger) *Dispatcher {
	RegisterProvider(&EmailProvider{mailer: NewMailer(smtp, log)})
	return &Dispatcher{channels: channels, log: log}
}

// NotifyCheckDown sends notifications when a check stops receiving pings.
func (d *Dispatcher) NotifyCheckDown(ctx context.Context, c *models.Check) error {
	return d.send(ctx, c, &Message{
		Title:     fmt.Sprintf("%s is DOWN", displayName(c)),
		Body:      fmt.Sprintf("The check %q has not received a ping within its configured timeout and grace period.", displayName(c)),
		CheckName: c.Name,
		CheckCode: c.Code,
		Status:    models.StatusDown,
		Time:      time.Now().UTC().Format(time.RFC3339),
	})
}

// NotifyCheckUp sends notifications when a down check receives a ping.
func (d *Dispatcher) NotifyCheckUp(ctx context.Context, c *models.Check) error {
	return d.send(ctx, c, &Message{
		Title:     fmt.Sprintf("%s is UP", displayName(c)),
		Body:      fmt.Sprintf("The check %q received a ping and is up again.", displayName(c)),
		CheckName: c.Name,
		CheckCode: c.Code,
		Status:    models.StatusUp,
		Time:      time.Now().UTC().Format(time.RFC3339),
	})
}

func (d *Dispatcher) send(ctx context.Context, c *models.Check, msg *Message) error {
	channels, err := d.channels.ChannelsForUser(ctx, c.UserID)
	if err != nil {
		return fmt.Errorf("failed to load channels: %w", err)
	}
	if len(channels) == 0 {
		return nil
	}

	errCh := make(chan error, len(channels))
	for i := range channels {
		go func(ch *models.Channel) {
			if err := d.sendOne(ctx, ch, msg); err != nil {
				d.log.Warn("notification failed",
					zap.String("kind", ch.Kind),
					zap.String("check", c.Code),
					zap.Error(err))
				errCh <- err
			} else {
				errCh <- nil
			}
		}(&channels[i])
	}

	var failed int
	for range channels {
		if err := <-errCh; err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to send %d/%d notifications", failed, len(channels))
	}
	return nil
}

func (d *Dispatcher) sendOne(ctx context.Context, ch *models.Channel, msg *Message) error {
	if ch.Kind == models.ChannelEmail && !ch.EmailVerified {
		return nil
	}
	provider, ok := GetProvider(ch.Kind)
	if !ok {
		return fmt.Errorf("unknown notification provider: %s", ch.Kind)
	}
	return provider.Send(ctx, ch, msg)
}

func displayName(c *models.Check) string {
	if c.Name != "" {
		return c.Name
	}
	return c.Code
}
