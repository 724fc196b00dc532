// Package events publishes the serialized alert representation to NATS
// JetStream for downstream consumers (API layer, data logger). Publication
// is best-effort: a broker failure is logged and never propagates into the
// delivery pipeline.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/hazardwatch/alerting/internal/model"
)

const (
	// StreamName is the JetStream stream holding alert lifecycle events.
	StreamName = "ALERTS"

	subjectTriggeredPrefix = "alert.triggered."
	subjectEscalated       = "alert.escalated"
	subjectAcknowledged    = "alert.acknowledged"
)

// Publisher emits alert lifecycle events. A nil *Publisher is valid and
// publishes nothing, so wiring stays unconditional when NATS is not
// configured.
type Publisher struct {
	logger *zap.Logger
	js     nats.JetStreamContext
}

// NewPublisher creates a publisher and ensures the alert stream exists.
func NewPublisher(logger *zap.Logger, js nats.JetStreamContext) (*Publisher, error) {
	p := &Publisher{
		logger: logger.Named("events"),
		js:     js,
	}

	_, err := js.StreamInfo(StreamName)
	if err != nil {
		if err != nats.ErrStreamNotFound {
			return nil, fmt.Errorf("failed to get stream info: %w", err)
		}
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     StreamName,
			Subjects: []string{"alert.>"},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream: %w", err)
		}
		p.logger.Info("Created alert event stream", zap.String("stream", StreamName))
	}

	return p, nil
}

// Triggered emits an event for a newly submitted alert. The subject carries
// the severity so consumers can subscribe selectively.
func (p *Publisher) Triggered(alert *model.Alert) {
	p.publish(subjectTriggeredPrefix+alert.Severity.String(), alert)
}

// Escalated emits an event for an escalated alert.
func (p *Publisher) Escalated(alert *model.Alert) {
	p.publish(subjectEscalated, alert)
}

// Acknowledged emits an event for an acknowledged alert.
func (p *Publisher) Acknowledged(alert *model.Alert) {
	p.publish(subjectAcknowledged, alert)
}

func (p *Publisher) publish(subject string, alert *model.Alert) {
	if p == nil {
		return
	}

	data, err := json.Marshal(alert)
	if err != nil {
		p.logger.Error("Failed to marshal alert event",
			zap.String("alert_id", alert.ID),
			zap.Error(err))
		return
	}

	if _, err := p.js.Publish(subject, data); err != nil {
		p.logger.Error("Failed to publish alert event",
			zap.String("subject", subject),
			zap.String("alert_id", alert.ID),
			zap.Error(err))
		return
	}

	p.logger.Debug("Alert event published",
		zap.String("subject", subject),
		zap.String("alert_id", alert.ID))
}
