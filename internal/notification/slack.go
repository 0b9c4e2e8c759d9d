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

// SlackProvider sends Slack webhook notifications
type SlackProvider struct{}

func init() {
	RegisterProvider(&SlackProvider{})
}

func (s *SlackProvider) Name() string {
	return models.ChannelSlack
}

func (s *SlackProvider) Send(ctx context.Context, channel *models.Channel, message *Message) error {
	if channel.Value == "" {
		return fmt.Errorf("webhook URL is required")
	}

	var color, icon string
	switch message.Status {
	case models.StatusUp:
		color = "good"
		icon = ":white_check_mark:"
	case models.StatusDown:
		color = "danger"
		icon = ":x:"
	default:
		color = "#808080"
		icon = ":information_source:"
	}

	payload := map[string]any{
		"username":   "PulseTrack",
		"icon_emoji": icon,
		"attachments": []map[string]any{{
			"color": color,
			"title": message.Title,
			"text":  message.Body,
			"ts":    time.Now().Unix(),
			"fields": []map[string]any{
				{"title": "Check", "value": message.CheckName, "short": true},
				{"title": "Status", "value": message.Status, "short": true},
			},
		}},
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

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}
