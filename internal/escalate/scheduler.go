// Package escalate implements the escalation protocol: a delivered alert
// that stays unacknowledged past the timeout is bumped one severity level
// and redelivered, up to a configured cap.
package escalate

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/hazardwatch/alerting/internal/model"
	"github.com/hazardwatch/alerting/internal/store"
)

// Config controls the escalation protocol.
type Config struct {
	Enabled bool `mapstructure:"enabled"`

	// Timeout is how long an alert may stay unacknowledged after a
	// delivery before it escalates.
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxEscalations caps how many times one alert escalates. Zero or
	// negative means unbounded.
	MaxEscalations int `mapstructure:"max_escalations"`
}

// Resubmitter re-enqueues an escalated alert for delivery.
type Resubmitter interface {
	Enqueue(alert *model.Alert) error
}

// entry is a pending escalation check for one alert.
type entry struct {
	fireAt  time.Time
	alertID string
}

// entryHeap is a min-heap ordered by fire time.
type entryHeap []entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].fireAt.Before(h[j].fireAt) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(entry)) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Scheduler runs the escalation state machine for every armed alert id.
// All timers live in one min-heap driven by a single loop, so there is no
// per-alert goroutine and the cap check and the active-set check happen in
// one place. Timers are fire-and-forget: acknowledging an alert does not
// cancel its pending entry, the fire simply observes the inactive id and
// does nothing.
type Scheduler struct {
	logger *zap.Logger
	clock  clock.Clock
	store  *store.Store
	queue  Resubmitter
	config Config

	mu      sync.Mutex
	pending entryHeap

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// NewScheduler creates an escalation scheduler over the given store,
// resubmitting through queue.
func NewScheduler(logger *zap.Logger, st *store.Store, queue Resubmitter, config Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger: logger.Named("escalation"),
		clock:  clock.New(),
		store:  st,
		queue:  queue,
		config: config,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Escalation disabled")
		close(s.done)
		return nil
	}
	s.logger.Info("Starting escalation scheduler",
		zap.Duration("timeout", s.config.Timeout),
		zap.Int("max_escalations", s.config.MaxEscalations))
	go s.run(ctx)
	return nil
}

// Stop stops the scheduling loop.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

// Arm schedules an escalation check for the alert one timeout from now.
// Called by the dispatcher after each delivery, including redeliveries, so
// an unacknowledged alert keeps a pending check until it exhausts the cap.
func (s *Scheduler) Arm(alertID string) {
	if !s.config.Enabled {
		return
	}

	s.mu.Lock()
	heap.Push(&s.pending, entry{
		fireAt:  s.clock.Now().Add(s.config.Timeout),
		alertID: alertID,
	})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	for {
		s.mu.Lock()
		var due []string
		var wait time.Duration
		hasNext := false

		now := s.clock.Now()
		for len(s.pending) > 0 && !s.pending[0].fireAt.After(now) {
			due = append(due, heap.Pop(&s.pending).(entry).alertID)
		}
		if len(s.pending) > 0 {
			wait = s.pending[0].fireAt.Sub(now)
			hasNext = true
		}
		s.mu.Unlock()

		for _, id := range due {
			s.fire(id)
		}
		if len(due) > 0 {
			continue
		}

		if !hasNext {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-s.wake:
			}
			continue
		}

		timer := s.clock.Timer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stop:
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// fire runs one escalation check. The store decides atomically between the
// three outcomes, so an acknowledge racing this call can never produce an
// escalated-but-inactive alert.
func (s *Scheduler) fire(alertID string) {
	alert, result := s.store.Escalate(alertID, s.config.MaxEscalations)

	switch result {
	case store.EscalateInactive:
		s.logger.Debug("Escalation check: alert no longer active",
			zap.String("alert_id", alertID))

	case store.EscalateExhausted:
		s.logger.Warn("Escalation cap reached, alert stays active until acknowledged",
			zap.String("alert_id", alertID),
			zap.Int("max_escalations", s.config.MaxEscalations))

	case store.EscalateOK:
		s.logger.Warn("Alert not acknowledged, escalating",
			zap.String("alert_id", alertID),
			zap.String("severity", alert.Severity.String()),
			zap.Int("escalation_count", alert.EscalationCount()))

		if err := s.queue.Enqueue(alert); err != nil {
			s.logger.Error("Failed to resubmit escalated alert",
				zap.String("alert_id", alertID),
				zap.Error(err))
		}
	}
}
