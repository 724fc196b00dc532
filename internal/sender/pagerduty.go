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

const defaultPagerDutyURL = "https://events.pagerduty.com/v2/enqueue"

// PagerDutyConfig holds Events API v2 settings. URL is overridable for
// testing.
type PagerDutyConfig struct {
	RoutingKey string `mapstructure:"routing_key"`
	URL        string `mapstructure:"url"`
}

// PagerDutySender creates incidents through the PagerDuty Events API v2.
// The alert id doubles as dedup key, so an escalated redelivery updates the
// open incident instead of opening a second one.
type PagerDutySender struct {
	config PagerDutyConfig
	client *http.Client
}

// NewPagerDutySender creates a PagerDuty Events API sender.
func NewPagerDutySender(config PagerDutyConfig) *PagerDutySender {
	if config.URL == "" {
		config.URL = defaultPagerDutyURL
	}
	return &PagerDutySender{config: config, client: newHTTPClient()}
}

func (s *PagerDutySender) Name() string { return "pagerduty" }

func pagerDutySeverity(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "critical"
	case model.SeverityHigh:
		return "error"
	case model.SeverityMedium:
		return "warning"
	default:
		return "info"
	}
}

type pagerDutyEvent struct {
	RoutingKey  string           `json:"routing_key"`
	EventAction string           `json:"event_action"`
	DedupKey    string           `json:"dedup_key"`
	Payload     pagerDutyPayload `json:"payload"`
}

type pagerDutyPayload struct {
	Summary       string         `json:"summary"`
	Source        string         `json:"source"`
	Severity      string         `json:"severity"`
	Timestamp     string         `json:"timestamp"`
	CustomDetails map[string]any `json:"custom_details,omitempty"`
}

func (s *PagerDutySender) Send(ctx context.Context, alert *model.Alert, recipient *model.Recipient) error {
	event := pagerDutyEvent{
		RoutingKey:  s.config.RoutingKey,
		EventAction: "trigger",
		DedupKey:    alert.ID,
		Payload: pagerDutyPayload{
			Summary:   alert.Title,
			Source:    alert.HazardID,
			Severity:  pagerDutySeverity(alert.Severity),
			Timestamp: alert.CreatedAt.UTC().Format(time.RFC3339),
			CustomDetails: map[string]any{
				"message":  alert.Message,
				"metadata": alert.Metadata,
			},
		},
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal pagerduty event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create pagerduty request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send pagerduty event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pagerduty returned status %d", resp.StatusCode)
	}
	return nil
}
