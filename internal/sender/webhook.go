package sender

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hazardwatch/alerting/internal/model"
)

// WebhookConfig holds settings for the generic webhook sender. If Secret is
// non-empty, request bodies are signed with HMAC-SHA256.
type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
}

// WebhookSender posts the serialized alert to each recipient's webhook URL.
type WebhookSender struct {
	config WebhookConfig
	client *http.Client
}

// NewWebhookSender creates a generic webhook sender.
func NewWebhookSender(config WebhookConfig) *WebhookSender {
	return &WebhookSender{config: config, client: newHTTPClient()}
}

func (s *WebhookSender) Name() string { return "webhook" }

type webhookPayload struct {
	Event     string       `json:"event"`
	Timestamp string       `json:"timestamp"`
	Alert     *model.Alert `json:"alert"`
}

func (s *WebhookSender) Send(ctx context.Context, alert *model.Alert, recipient *model.Recipient) error {
	if recipient.WebhookURL == "" {
		return fmt.Errorf("recipient %s has no webhook url", recipient.Name)
	}

	body, err := json.Marshal(webhookPayload{
		Event:     "hazard_alert",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Alert:     alert,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, recipient.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if s.config.Secret != "" {
		mac := hmac.New(sha256.New, []byte(s.config.Secret))
		mac.Write(body)
		req.Header.Set("X-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
