package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hazardwatch/alerting/internal/model"
)

// DiscordConfig holds the webhook settings for Discord delivery.
type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// DiscordSender posts alerts to a Discord webhook as an embed.
type DiscordSender struct {
	config DiscordConfig
	client *http.Client
}

// NewDiscordSender creates a Discord webhook sender.
func NewDiscordSender(config DiscordConfig) *DiscordSender {
	return &DiscordSender{config: config, client: newHTTPClient()}
}

func (s *DiscordSender) Name() string { return "discord" }

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type discordMessage struct {
	Embeds []discordEmbed `json:"embeds"`
}

func discordColor(severity model.Severity) int {
	switch severity {
	case model.SeverityCritical:
		return 0xcc0000
	case model.SeverityHigh:
		return 0xff0000
	case model.SeverityMedium:
		return 0xff9900
	default:
		return 0x36a64f
	}
}

func (s *DiscordSender) Send(ctx context.Context, alert *model.Alert, recipient *model.Recipient) error {
	msg := discordMessage{
		Embeds: []discordEmbed{{
			Title:       fmt.Sprintf("[%s] %s", alert.Severity, alert.Title),
			Description: alert.Message,
			Color:       discordColor(alert.Severity),
			Timestamp:   alert.CreatedAt.UTC().Format(time.RFC3339),
		}},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal discord message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord returned status %d", resp.StatusCode)
	}
	return nil
}
