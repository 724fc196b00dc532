package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hazardwatch/alerting/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "alertd", cfg.App.Name)
	require.True(t, cfg.Escalation.Enabled)
	require.Equal(t, 5*time.Minute, cfg.Escalation.Timeout)
	require.Equal(t, 3, cfg.Escalation.MaxEscalations)
	require.Equal(t, 256, cfg.Dispatch.QueueSize)
	require.False(t, cfg.NATS.Enabled)
	require.Equal(t, []string{"console"}, cfg.Senders.Enabled)
}

func TestLoadFile(t *testing.T) {
	dir := writeConfig(t, `
app:
  name: hazard-alertd
nats:
  enabled: true
  urls:
    - nats://nats-1:4222
escalation:
  timeout: 10m
  max_escalations: 2
senders:
  enabled: [console, email, webhook]
  email:
    host: smtp.example.com
    port: 587
    username: alerts
    password: secret
    from: alerts@example.com
  webhook:
    secret: hmac-key
recipients:
  - name: Security Team
    channels: [email, webhook]
    email: security@example.com
    webhook_url: https://hooks.example.com/alerts
    severity_threshold: medium
    active_hours:
      start: "09:00"
      end: "17:00"
  - name: On-Call
    channels: [console]
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, "hazard-alertd", cfg.App.Name)
	require.True(t, cfg.NATS.Enabled)
	require.Equal(t, []string{"nats://nats-1:4222"}, cfg.NATS.URLs)
	require.Equal(t, 10*time.Minute, cfg.Escalation.Timeout)
	require.Equal(t, 2, cfg.Escalation.MaxEscalations)
	require.Equal(t, "smtp.example.com", cfg.Senders.Email.Host)
	require.Equal(t, "hmac-key", cfg.Senders.Webhook.Secret)
	require.Len(t, cfg.Recipients, 2)
}

func TestRecipientConversion(t *testing.T) {
	rc := RecipientConfig{
		Name:       "Security Team",
		Channels:   []string{"email", "webhook"},
		Email:      "security@example.com",
		WebhookURL: "https://hooks.example.com/alerts",
		Threshold:  "medium",
		ActiveHours: &ActiveHoursConfig{
			Start: "09:00",
			End:   "17:00",
		},
	}

	r, err := rc.Recipient()
	require.NoError(t, err)
	require.Equal(t, model.SeverityMedium, r.Threshold)
	require.Equal(t, []model.Channel{model.ChannelEmail, model.ChannelWebhook}, r.Channels)
	require.Equal(t, "09:00", r.ActiveHours.Start)
	require.Equal(t, "17:00", r.ActiveHours.End)
}

func TestRecipientDefaultsAndErrors(t *testing.T) {
	r, err := RecipientConfig{Name: "On-Call", Channels: []string{"console"}}.Recipient()
	require.NoError(t, err)
	require.Equal(t, model.SeverityLow, r.Threshold)
	require.Nil(t, r.ActiveHours)

	_, err = RecipientConfig{Name: "Bad", Threshold: "urgent"}.Recipient()
	require.Error(t, err)
	require.Contains(t, err.Error(), "Bad")
}

func TestLoadMalformedFileFails(t *testing.T) {
	dir := writeConfig(t, "app: [unclosed")
	_, err := Load(dir)
	require.Error(t, err)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("ALERTD_ESCALATION_TIMEOUT", "30s")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, cfg.Escalation.Timeout)
}
