package sender

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/hazardwatch/alerting/internal/model"
)

// EmailConfig holds SMTP settings for the email sender.
type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// EmailSender delivers alerts over SMTP.
type EmailSender struct {
	config EmailConfig
	dialer *gomail.Dialer
}

// NewEmailSender creates an SMTP email sender.
func NewEmailSender(config EmailConfig) *EmailSender {
	return &EmailSender{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
	}
}

func (s *EmailSender) Name() string { return "email" }

func (s *EmailSender) Send(ctx context.Context, alert *model.Alert, recipient *model.Recipient) error {
	if recipient.Email == "" {
		return fmt.Errorf("recipient %s has no email address", recipient.Name)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.From)
	m.SetHeader("To", recipient.Email)
	m.SetHeader("Subject", fmt.Sprintf("[%s] %s", alert.Severity, alert.Title))
	m.SetBody("text/plain", fmt.Sprintf(
		"Hazard: %s\nSeverity: %s\nTime: %s\n\n%s\n",
		alert.HazardID,
		alert.Severity,
		alert.CreatedAt.Format("2006-01-02 15:04:05"),
		alert.Message))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email to %s: %w", recipient.Email, err)
	}
	return nil
}
