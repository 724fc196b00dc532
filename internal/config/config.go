// Package config loads the alerting daemon configuration from a YAML file
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hazardwatch/alerting/internal/escalate"
	"github.com/hazardwatch/alerting/internal/model"
	"github.com/hazardwatch/alerting/internal/monitor"
	"github.com/hazardwatch/alerting/internal/sender"
)

// AppConfig holds process-level settings.
type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

// NATSConfig holds broker connection settings for the event publisher.
type NATSConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URLs           []string      `mapstructure:"urls"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// DispatchConfig holds delivery queue settings.
type DispatchConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

// SendersConfig holds per-channel sender settings. A channel is registered
// only when listed in Enabled.
type SendersConfig struct {
	Enabled   []string               `mapstructure:"enabled"`
	Email     sender.EmailConfig     `mapstructure:"email"`
	SMS       sender.SMSConfig       `mapstructure:"sms"`
	Push      sender.PushConfig      `mapstructure:"push"`
	Webhook   sender.WebhookConfig   `mapstructure:"webhook"`
	Slack     sender.SlackConfig     `mapstructure:"slack"`
	Discord   sender.DiscordConfig   `mapstructure:"discord"`
	Telegram  sender.TelegramConfig  `mapstructure:"telegram"`
	PagerDuty sender.PagerDutyConfig `mapstructure:"pagerduty"`
}

// ActiveHoursConfig mirrors model.ActiveHours for the config file.
type ActiveHoursConfig struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// RecipientConfig is one recipient entry in the config file. Threshold is
// a severity name ("low", "medium", "high", "critical").
type RecipientConfig struct {
	Name           string             `mapstructure:"name"`
	Channels       []string           `mapstructure:"channels"`
	Email          string             `mapstructure:"email"`
	Phone          string             `mapstructure:"phone"`
	WebhookURL     string             `mapstructure:"webhook_url"`
	SlackChannel   string             `mapstructure:"slack_channel"`
	TelegramChatID string             `mapstructure:"telegram_chat_id"`
	PushToken      string             `mapstructure:"push_token"`
	Threshold      string             `mapstructure:"severity_threshold"`
	ActiveHours    *ActiveHoursConfig `mapstructure:"active_hours"`
}

// Recipient converts the entry into the model form.
func (r RecipientConfig) Recipient() (*model.Recipient, error) {
	threshold := model.SeverityLow
	if r.Threshold != "" {
		parsed, err := model.ParseSeverity(r.Threshold)
		if err != nil {
			return nil, fmt.Errorf("recipient %s: %w", r.Name, err)
		}
		threshold = parsed
	}

	channels := make([]model.Channel, 0, len(r.Channels))
	for _, c := range r.Channels {
		channels = append(channels, model.Channel(c))
	}

	recipient := &model.Recipient{
		Name:           r.Name,
		Channels:       channels,
		Email:          r.Email,
		Phone:          r.Phone,
		WebhookURL:     r.WebhookURL,
		SlackChannel:   r.SlackChannel,
		TelegramChatID: r.TelegramChatID,
		PushToken:      r.PushToken,
		Threshold:      threshold,
	}
	if r.ActiveHours != nil {
		recipient.ActiveHours = &model.ActiveHours{
			Start: r.ActiveHours.Start,
			End:   r.ActiveHours.End,
		}
	}
	return recipient, nil
}

// Config is the full daemon configuration.
type Config struct {
	App        AppConfig              `mapstructure:"app"`
	NATS       NATSConfig             `mapstructure:"nats"`
	Dispatch   DispatchConfig         `mapstructure:"dispatch"`
	Escalation escalate.Config        `mapstructure:"escalation"`
	Watchdog   monitor.WatchdogConfig `mapstructure:"watchdog"`
	Digest     monitor.DigestConfig   `mapstructure:"digest"`
	Senders    SendersConfig          `mapstructure:"senders"`
	Recipients []RecipientConfig      `mapstructure:"recipients"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "alertd")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.urls", []string{"nats://localhost:4222"})
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.connect_timeout", 5*time.Second)

	v.SetDefault("dispatch.queue_size", 256)

	v.SetDefault("escalation.enabled", true)
	v.SetDefault("escalation.timeout", 5*time.Minute)
	v.SetDefault("escalation.max_escalations", 3)

	v.SetDefault("watchdog.enabled", false)
	v.SetDefault("watchdog.interval", 30*time.Second)
	v.SetDefault("watchdog.cpu_threshold", 90.0)
	v.SetDefault("watchdog.memory_threshold", 85.0)
	v.SetDefault("watchdog.cooldown", 10*time.Minute)

	v.SetDefault("digest.enabled", false)
	v.SetDefault("digest.schedule", "0 0 * * * *")

	v.SetDefault("senders.enabled", []string{"console"})
}

// Load reads the configuration file from path (a directory holding
// config.yaml). Environment variables prefixed with ALERTD override file
// values, e.g. ALERTD_ESCALATION_TIMEOUT=10m.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)

	v.SetEnvPrefix("ALERTD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Defaults plus environment overrides are a valid configuration;
		// only a malformed file is fatal.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
