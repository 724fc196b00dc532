package sender

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hazardwatch/alerting/internal/model"
)

const defaultSMSURL = "https://api.twilio.com"

// SMSConfig holds Twilio REST settings. URL is overridable for testing.
type SMSConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
	URL        string `mapstructure:"url"`
}

// SMSSender delivers alerts as text messages through the Twilio REST API.
type SMSSender struct {
	config SMSConfig
	client *http.Client
}

// NewSMSSender creates a Twilio SMS sender.
func NewSMSSender(config SMSConfig) *SMSSender {
	if config.URL == "" {
		config.URL = defaultSMSURL
	}
	return &SMSSender{config: config, client: newHTTPClient()}
}

func (s *SMSSender) Name() string { return "sms" }

func (s *SMSSender) Send(ctx context.Context, alert *model.Alert, recipient *model.Recipient) error {
	if recipient.Phone == "" {
		return fmt.Errorf("recipient %s has no phone number", recipient.Name)
	}

	form := url.Values{}
	form.Set("From", s.config.From)
	form.Set("To", recipient.Phone)
	form.Set("Body", fmt.Sprintf("[%s] %s: %s", alert.Severity, alert.Title, alert.Message))

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.config.URL, s.config.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms to %s: %w", recipient.Phone, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}
	return nil
}
