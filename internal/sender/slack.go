package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hazardwatch/alerting/internal/model"
)

// SlackConfig holds the incoming-webhook settings for Slack delivery.
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// SlackSender posts alerts to a Slack incoming webhook using Block Kit.
type SlackSender struct {
	config SlackConfig
	client *http.Client
}

// NewSlackSender creates a Slack webhook sender.
func NewSlackSender(config SlackConfig) *SlackSender {
	return &SlackSender{config: config, client: newHTTPClient()}
}

func (s *SlackSender) Name() string { return "slack" }

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackMessage struct {
	Channel string       `json:"channel,omitempty"`
	Blocks  []slackBlock `json:"blocks"`
}

func (s *SlackSender) Send(ctx context.Context, alert *model.Alert, recipient *model.Recipient) error {
	msg := slackMessage{
		Channel: recipient.SlackChannel,
		Blocks: []slackBlock{
			{
				Type: "header",
				Text: &slackText{Type: "plain_text", Text: "🚨 " + alert.Title},
			},
			{
				Type: "section",
				Fields: []slackText{
					{Type: "mrkdwn", Text: "*Severity:*\n" + alert.Severity.String()},
					{Type: "mrkdwn", Text: "*Time:*\n" + alert.CreatedAt.Format("2006-01-02 15:04:05")},
				},
			},
			{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: alert.Message},
			},
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}
