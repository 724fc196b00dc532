package model

import "time"

// ActiveHours restricts delivery to a wall-clock window, inclusive on both
// ends. Start and End are zero-padded "HH:MM" strings.
type ActiveHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Recipient is an immutable delivery destination: built at configuration
// time, read-only afterwards. Channels are attempted in their stored order.
type Recipient struct {
	Name           string       `json:"name"`
	Channels       []Channel    `json:"channels"`
	Email          string       `json:"email,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	WebhookURL     string       `json:"webhook_url,omitempty"`
	SlackChannel   string       `json:"slack_channel,omitempty"`
	TelegramChatID string       `json:"telegram_chat_id,omitempty"`
	PushToken      string       `json:"push_token,omitempty"`
	Threshold      Severity     `json:"severity_threshold"`
	ActiveHours    *ActiveHours `json:"active_hours,omitempty"`
}

// ShouldReceive reports whether the recipient is eligible for an alert of
// the given severity at the given time.
//
// The active-hours check compares "HH:MM" strings lexically, so a window
// that wraps midnight (Start > End) never matches. Known limitation, kept
// for compatibility with the existing recipient configurations.
func (r *Recipient) ShouldReceive(severity Severity, now time.Time) bool {
	if severity < r.Threshold {
		return false
	}
	if r.ActiveHours != nil {
		hhmm := now.Format("15:04")
		if hhmm < r.ActiveHours.Start || hhmm > r.ActiveHours.End {
			return false
		}
	}
	return true
}
