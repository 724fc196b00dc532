// Package manager wires the alerting components into one application
// context object: recipient directory, alert store, delivery dispatcher,
// escalation scheduler and the optional event publisher share a lifecycle
// owned by the AlertManager.
package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/hazardwatch/alerting/internal/directory"
	"github.com/hazardwatch/alerting/internal/dispatch"
	"github.com/hazardwatch/alerting/internal/escalate"
	"github.com/hazardwatch/alerting/internal/events"
	"github.com/hazardwatch/alerting/internal/model"
	"github.com/hazardwatch/alerting/internal/sender"
	"github.com/hazardwatch/alerting/internal/store"
)

var (
	// ErrMissingAlertID is returned when an alert is submitted without an id.
	ErrMissingAlertID = errors.New("alert id is required")

	// ErrInvalidSeverity is returned when an alert carries an undefined
	// severity level.
	ErrInvalidSeverity = errors.New("invalid alert severity")
)

// armerFunc adapts a function to dispatch.Escalator.
type armerFunc func(alertID string)

func (f armerFunc) Arm(alertID string) { f(alertID) }

// enqueuerFunc adapts a function to escalate.Resubmitter.
type enqueuerFunc func(alert *model.Alert) error

func (f enqueuerFunc) Enqueue(alert *model.Alert) error { return f(alert) }

// AlertManager manages alert routing, delivery, escalation and
// acknowledgement.
type AlertManager struct {
	logger     *zap.Logger
	clock      clock.Clock
	queueSize  int
	directory  *directory.Directory
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	scheduler  *escalate.Scheduler
	events     *events.Publisher
}

// Option configures an AlertManager.
type Option func(*AlertManager)

// WithClock replaces the wall clock across all components, for tests.
func WithClock(c clock.Clock) Option {
	return func(m *AlertManager) { m.clock = c }
}

// WithEvents attaches a lifecycle event publisher.
func WithEvents(p *events.Publisher) Option {
	return func(m *AlertManager) { m.events = p }
}

// WithQueueSize sets the delivery queue capacity.
func WithQueueSize(n int) Option {
	return func(m *AlertManager) { m.queueSize = n }
}

// New creates an alert manager with the given sender registry and
// escalation settings.
func New(logger *zap.Logger, senders sender.Registry, escalation escalate.Config, opts ...Option) *AlertManager {
	m := &AlertManager{
		logger: logger.Named("alert-manager"),
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.store = store.NewStore(logger)
	m.directory = directory.NewDirectory(logger)

	dispatchOpts := []dispatch.Option{
		dispatch.WithClock(m.clock),
		dispatch.WithEscalator(armerFunc(func(alertID string) {
			m.scheduler.Arm(alertID)
		})),
	}
	if m.queueSize > 0 {
		dispatchOpts = append(dispatchOpts, dispatch.WithQueueSize(m.queueSize))
	}
	m.dispatcher = dispatch.NewDispatcher(logger, m.directory, m.store, senders, dispatchOpts...)

	m.scheduler = escalate.NewScheduler(logger, m.store,
		enqueuerFunc(func(alert *model.Alert) error {
			m.events.Escalated(alert)
			return m.dispatcher.Enqueue(alert)
		}),
		escalation,
		escalate.WithClock(m.clock))

	return m
}

// Start launches the delivery worker and the escalation loop.
func (m *AlertManager) Start(ctx context.Context) error {
	if err := m.dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	if err := m.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start escalation scheduler: %w", err)
	}
	m.logger.Info("Alert manager started")
	return nil
}

// Stop shuts the components down. The in-flight delivery finishes first.
func (m *AlertManager) Stop() {
	m.scheduler.Stop()
	m.dispatcher.Stop()
	m.logger.Info("Alert manager stopped")
}

// AddRecipient registers a delivery destination.
func (m *AlertManager) AddRecipient(recipient *model.Recipient) {
	m.directory.AddRecipient(recipient)
}

// Submit registers the alert and queues it for delivery to all eligible
// recipients. The alert id is caller-supplied and must be unique.
func (m *AlertManager) Submit(ctx context.Context, alert *model.Alert) error {
	if alert.ID == "" {
		return ErrMissingAlertID
	}
	if !alert.Severity.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSeverity, int(alert.Severity))
	}

	if err := m.dispatcher.Submit(ctx, alert); err != nil {
		return err
	}
	m.events.Triggered(alert)
	return nil
}

// Acknowledge marks the alert acknowledged and takes it out of the active
// set. Unknown or already-acknowledged ids are a benign no-op; the return
// value reports whether anything changed.
func (m *AlertManager) Acknowledge(alertID, actor string) bool {
	if !m.store.Acknowledge(alertID, actor, m.clock.Now()) {
		return false
	}
	if snap, ok := m.store.Snapshot(alertID); ok {
		m.events.Acknowledged(snap)
	}
	return true
}

// ActiveAlerts returns the unacknowledged alerts, optionally filtered to
// one severity.
func (m *AlertManager) ActiveAlerts(severity *model.Severity) []*model.Alert {
	return m.store.Active(severity)
}

// Statistics summarizes the alert history.
func (m *AlertManager) Statistics() model.Statistics {
	return m.store.Statistics()
}
