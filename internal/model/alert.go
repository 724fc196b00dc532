package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Severity represents the urgency of an alert. Severities are totally
// ordered; escalation moves strictly upward and saturates at Critical.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Severities lists all severity levels in ascending order of urgency.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// String returns the severity name used on the wire and in configuration.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Valid reports whether s is one of the defined severity levels.
func (s Severity) Valid() bool {
	return s >= SeverityLow && s <= SeverityCritical
}

// Next returns the severity one level up, saturating at Critical.
func (s Severity) Next() Severity {
	if s >= SeverityCritical {
		return SeverityCritical
	}
	return s + 1
}

// ParseSeverity converts a severity name to its Severity value.
func ParseSeverity(name string) (Severity, error) {
	for _, s := range Severities {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown severity: %q", name)
}

// MarshalJSON encodes the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid severity %d", int(s))
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity from its name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Channel identifies a delivery mechanism. The set is open: any channel a
// sender is registered for can be used in a recipient profile.
type Channel string

const (
	ChannelConsole   Channel = "console"
	ChannelEmail     Channel = "email"
	ChannelSMS       Channel = "sms"
	ChannelPush      Channel = "push"
	ChannelWebhook   Channel = "webhook"
	ChannelSlack     Channel = "slack"
	ChannelDiscord   Channel = "discord"
	ChannelTelegram  Channel = "telegram"
	ChannelPagerDuty Channel = "pagerduty"
)

// Metadata keys maintained by the escalation scheduler.
const (
	MetaEscalated           = "escalated"
	MetaEscalationCount     = "escalation_count"
	MetaEscalationExhausted = "escalation_exhausted"
)

// Alert is a single hazard notification instance. The identity is the
// caller-supplied ID. Severity, metadata and the acknowledgement fields are
// mutable; all mutation goes through the store, which guards them with a
// single lock.
//
// The JSON shape is the serialized representation handed to downstream
// consumers: the acknowledgement actor and timestamp stay internal.
type Alert struct {
	ID        string         `json:"alert_id"`
	HazardID  string         `json:"hazard_id"`
	Severity  Severity       `json:"severity"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	CreatedAt time.Time      `json:"timestamp"`
	Location  map[string]any `json:"location,omitempty"`
	ImagePath string         `json:"image_path,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy string     `json:"-"`
	AcknowledgedAt *time.Time `json:"-"`
}

// EscalationCount returns the number of times the alert has been escalated.
// The counter lives in metadata so it survives serialization, where numbers
// come back as float64.
func (a *Alert) EscalationCount() int {
	if a.Metadata == nil {
		return 0
	}
	switch v := a.Metadata[MetaEscalationCount].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// Clone returns a copy of the alert with its own metadata and location maps.
// The dispatcher delivers from clones so senders never observe a concurrent
// escalation or acknowledgement mid-write.
func (a *Alert) Clone() *Alert {
	c := *a
	if a.Location != nil {
		c.Location = make(map[string]any, len(a.Location))
		for k, v := range a.Location {
			c.Location[k] = v
		}
	}
	if a.Metadata != nil {
		c.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			c.Metadata[k] = v
		}
	}
	if a.AcknowledgedAt != nil {
		at := *a.AcknowledgedAt
		c.AcknowledgedAt = &at
	}
	return &c
}

// Statistics summarizes the alert history.
type Statistics struct {
	TotalAlerts        int            `json:"total_alerts"`
	ActiveAlerts       int            `json:"active_alerts"`
	AcknowledgedAlerts int            `json:"acknowledged_alerts"`
	BySeverity         map[string]int `json:"by_severity"`

	// AverageAcknowledgmentTime is the mean acknowledgement latency in
	// minutes over all acknowledged alerts, 0 when none are acknowledged.
	AverageAcknowledgmentTime float64 `json:"average_acknowledgment_time"`
}
