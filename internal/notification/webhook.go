package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pulsetrack/pulsetrack/internal/models"
)

// WebhookProvider sends generic webhook notifications
type WebhookProvider struct{}

func init() {
	RegisterProvider(&WebhookProvider{})
}

func (w *WebhookProvider) Name() string {
	return models.ChannelWebhook
}

func (w *WebhookProvider) Send(ctx context.Context, channel *models.Channel, message *Message) error {
	if channel.Value == "" {
		return fmt.Errorf("webhook URL is required")
	}

	payload := map[string]any{
		"title":      message.Title,
		"body":       message.Body,
		"check_name": message.CheckName,
		"check_code": message.CheckCode,
		"status":     message.Status,
		"time":       message.Time,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, channel.Value, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "PulseTrack-Webhook/1.0")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
