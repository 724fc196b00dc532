package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hazardwatch/alerting/internal/model"
)

const defaultPushURL = "https://fcm.googleapis.com/fcm/send"

// PushConfig holds FCM settings. URL is overridable for testing.
type PushConfig struct {
	APIKey string `mapstructure:"api_key"`
	URL    string `mapstructure:"url"`
}

// PushSender delivers alerts as mobile push notifications via FCM.
type PushSender struct {
	config PushConfig
	client *http.Client
}

// NewPushSender creates an FCM push sender.
func NewPushSender(config PushConfig) *PushSender {
	if config.URL == "" {
		config.URL = defaultPushURL
	}
	return &PushSender{config: config, client: newHTTPClient()}
}

func (s *PushSender) Name() string { return "push" }

func (s *PushSender) Send(ctx context.Context, alert *model.Alert, recipient *model.Recipient) error {
	if recipient.PushToken == "" {
		return fmt.Errorf("recipient %s has no push token", recipient.Name)
	}

	body, err := json.Marshal(map[string]any{
		"to": recipient.PushToken,
		"notification": map[string]string{
			"title": fmt.Sprintf("[%s] %s", alert.Severity, alert.Title),
			"body":  alert.Message,
		},
		"data": map[string]string{
			"alert_id":  alert.ID,
			"hazard_id": alert.HazardID,
			"severity":  alert.Severity.String(),
		},
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push provider returned status %d", resp.StatusCode)
	}
	return nil
}
