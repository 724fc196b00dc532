package store

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hazardwatch/alerting/internal/model"
)

var (
	// ErrDuplicateAlert is returned when an alert id has been seen before.
	ErrDuplicateAlert = errors.New("duplicate alert id")
)

// EscalateResult describes the outcome of an escalation attempt.
type EscalateResult int

const (
	// EscalateOK means the alert was escalated and should be redelivered.
	EscalateOK EscalateResult = iota
	// EscalateInactive means the alert is no longer active; nothing happened.
	EscalateInactive
	// EscalateExhausted means the escalation cap was reached; the alert
	// stays active but will not be resubmitted.
	EscalateExhausted
)

// Store tracks active (unacknowledged) alerts and the full alert history.
// History holds alerts by reference: escalation and acknowledgement
// mutations remain visible through it. One mutex guards the active set,
// the history, and every alert's mutable fields, so check-then-mutate
// sequences from the delivery worker, the escalation scheduler and
// acknowledging callers never interleave incoherently.
type Store struct {
	logger *zap.Logger

	mu      sync.Mutex
	active  map[string]*model.Alert
	byID    map[string]*model.Alert
	history []*model.Alert
}

// NewStore creates an empty alert store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		logger: logger.Named("store"),
		active: make(map[string]*model.Alert),
		byID:   make(map[string]*model.Alert),
	}
}

// Register adds the alert to the active set and appends it to history.
// Alert ids are caller-supplied and must be unique; a reused id is rejected
// so an alert can never appear in history twice.
func (s *Store) Register(alert *model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[alert.ID]; ok {
		return ErrDuplicateAlert
	}

	s.active[alert.ID] = alert
	s.byID[alert.ID] = alert
	s.history = append(s.history, alert)
	return nil
}

// IsActive reports whether the alert id is registered and unacknowledged.
func (s *Store) IsActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[id]
	return ok
}

// Snapshot returns a copy of the alert's current state, whether or not it
// is still active. The copy is safe to read while the original keeps
// mutating under the store lock.
func (s *Store) Snapshot(id string) (*model.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return alert.Clone(), true
}

// Acknowledge marks the alert acknowledged and removes it from the active
// set in one step. Returns false without touching anything when the id is
// unknown or already acknowledged; callers treat that as a benign no-op.
func (s *Store) Acknowledge(id, actor string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.active[id]
	if !ok {
		return false
	}

	alert.Acknowledged = true
	alert.AcknowledgedBy = actor
	alert.AcknowledgedAt = &now
	delete(s.active, id)

	s.logger.Info("Alert acknowledged",
		zap.String("alert_id", id),
		zap.String("acknowledged_by", actor))
	return true
}

// Escalate bumps the alert one severity level (saturating at Critical),
// marks the escalation metadata and increments the escalation counter. The
// counter increments even when severity is already at the ceiling.
//
// An id that is no longer active yields EscalateInactive. Once the counter
// has reached maxEscalations (when positive), the alert is tagged
// escalation_exhausted and EscalateExhausted is returned; it stays active
// until someone acknowledges it.
func (s *Store) Escalate(id string, maxEscalations int) (*model.Alert, EscalateResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.active[id]
	if !ok {
		return nil, EscalateInactive
	}

	if alert.Metadata == nil {
		alert.Metadata = make(map[string]any)
	}

	count := alert.EscalationCount()
	if maxEscalations > 0 && count >= maxEscalations {
		alert.Metadata[model.MetaEscalationExhausted] = true
		return nil, EscalateExhausted
	}

	alert.Severity = alert.Severity.Next()
	alert.Metadata[model.MetaEscalated] = true
	alert.Metadata[model.MetaEscalationCount] = count + 1

	// Return a copy so callers can publish or requeue it without holding
	// the lock against later mutations.
	return alert.Clone(), EscalateOK
}

// Active returns the active alerts, optionally filtered to one severity.
func (s *Store) Active(severity *model.Severity) []*model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	alerts := make([]*model.Alert, 0, len(s.active))
	for _, alert := range s.active {
		if severity != nil && alert.Severity != *severity {
			continue
		}
		alerts = append(alerts, alert.Clone())
	}
	return alerts
}

// Statistics summarizes the full history: totals, per-severity counts and
// the mean acknowledgement latency in minutes.
func (s *Store) Statistics() model.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := model.Statistics{
		TotalAlerts:  len(s.history),
		ActiveAlerts: len(s.active),
		BySeverity:   make(map[string]int, len(model.Severities)),
	}
	for _, sev := range model.Severities {
		stats.BySeverity[sev.String()] = 0
	}

	var ackMinutes float64
	for _, alert := range s.history {
		stats.BySeverity[alert.Severity.String()]++
		if alert.Acknowledged && alert.AcknowledgedAt != nil {
			stats.AcknowledgedAlerts++
			ackMinutes += alert.AcknowledgedAt.Sub(alert.CreatedAt).Minutes()
		}
	}
	if stats.AcknowledgedAlerts > 0 {
		stats.AverageAcknowledgmentTime = ackMinutes / float64(stats.AcknowledgedAlerts)
	}
	return stats
}
