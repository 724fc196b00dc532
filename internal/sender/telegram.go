package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hazardwatch/alerting/internal/model"
)

const defaultTelegramURL = "https://api.telegram.org"

// TelegramConfig holds Bot API settings for Telegram delivery. URL is
// overridable for testing.
type TelegramConfig struct {
	Token string `mapstructure:"token"`
	URL   string `mapstructure:"url"`
}

// TelegramSender sends alerts through the Telegram Bot API.
type TelegramSender struct {
	config TelegramConfig
	client *http.Client
}

// NewTelegramSender creates a Telegram Bot API sender.
func NewTelegramSender(config TelegramConfig) *TelegramSender {
	if config.URL == "" {
		config.URL = defaultTelegramURL
	}
	return &TelegramSender{config: config, client: newHTTPClient()}
}

func (s *TelegramSender) Name() string { return "telegram" }

func (s *TelegramSender) Send(ctx context.Context, alert *model.Alert, recipient *model.Recipient) error {
	if recipient.TelegramChatID == "" {
		return fmt.Errorf("recipient %s has no telegram chat id", recipient.Name)
	}

	body, err := json.Marshal(map[string]string{
		"chat_id": recipient.TelegramChatID,
		"text": fmt.Sprintf("[%s] %s\n%s",
			alert.Severity, alert.Title, alert.Message),
	})
	if err != nil {
		return fmt.Errorf("marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.config.URL, s.config.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}
