package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/hazardwatch/alerting/internal/directory"
	"github.com/hazardwatch/alerting/internal/model"
	"github.com/hazardwatch/alerting/internal/sender"
	"github.com/hazardwatch/alerting/internal/store"
)

const defaultQueueSize = 256

var (
	// ErrQueueFull is returned when the submission queue cannot accept
	// another alert without blocking the caller.
	ErrQueueFull = errors.New("alert queue full")
)

// Escalator arms an escalation timer for a delivered alert.
type Escalator interface {
	Arm(alertID string)
}

// Dispatcher fans one alert out to every eligible recipient across each of
// their channels. Submission is an O(1) enqueue; a single background worker
// consumes the queue in FIFO order, so deliveries are never concurrent with
// each other and delivery order equals submission order. Escalation
// resubmissions re-enter at the back of the same queue.
type Dispatcher struct {
	logger    *zap.Logger
	clock     clock.Clock
	directory *directory.Directory
	store     *store.Store
	senders   sender.Registry
	escalator Escalator

	queue chan *model.Alert
	stop  chan struct{}
	done  chan struct{}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock replaces the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(d *Dispatcher) { d.clock = c }
}

// WithEscalator wires the escalation scheduler armed after each delivery.
func WithEscalator(e Escalator) Option {
	return func(d *Dispatcher) { d.escalator = e }
}

// WithQueueSize sets the submission queue capacity.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) { d.queue = make(chan *model.Alert, n) }
}

// NewDispatcher creates a dispatcher over the given directory, store and
// sender registry.
func NewDispatcher(logger *zap.Logger, dir *directory.Directory, st *store.Store, senders sender.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger:    logger.Named("dispatcher"),
		clock:     clock.New(),
		directory: dir,
		store:     st,
		senders:   senders,
		queue:     make(chan *model.Alert, defaultQueueSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the delivery worker.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info("Starting dispatcher")
	go d.worker(ctx)
	return nil
}

// Stop stops the delivery worker. An in-flight delivery finishes first;
// queued alerts are dropped.
func (d *Dispatcher) Stop() {
	d.logger.Info("Stopping dispatcher")
	close(d.stop)
	<-d.done
}

// Submit registers the alert as active, appends it to history and enqueues
// it for asynchronous delivery. The call never blocks beyond the enqueue.
//
// On ErrQueueFull the alert stays registered: it remains visible in the
// active set and can be acknowledged, it just was not delivered. The record
// is not dropped, so resubmitting the same id reports ErrDuplicateAlert.
func (d *Dispatcher) Submit(ctx context.Context, alert *model.Alert) error {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = d.clock.Now()
	}

	if err := d.store.Register(alert); err != nil {
		return fmt.Errorf("register alert %s: %w", alert.ID, err)
	}

	d.logger.Info("Alert submitted",
		zap.String("alert_id", alert.ID),
		zap.String("hazard_id", alert.HazardID),
		zap.String("severity", alert.Severity.String()),
		zap.String("title", alert.Title))

	return d.Enqueue(alert)
}

// Enqueue places an already-registered alert at the back of the delivery
// queue. Used by the escalation scheduler to redeliver.
func (d *Dispatcher) Enqueue(alert *model.Alert) error {
	select {
	case d.queue <- alert:
		return nil
	default:
		d.logger.Error("Alert queue full, dropping delivery",
			zap.String("alert_id", alert.ID))
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			return
		case alert := <-d.queue:
			d.deliver(ctx, alert)
			if d.escalator != nil {
				d.escalator.Arm(alert.ID)
			}
		}
	}
}

// deliver fans the alert out to every eligible recipient. Sender failures
// and unregistered channels are logged and skipped; one bad
// (recipient, channel) pair never affects the rest of the fan-out.
func (d *Dispatcher) deliver(ctx context.Context, alert *model.Alert) {
	// Deliver from a snapshot so a concurrent escalation or
	// acknowledgement never shows senders a half-applied mutation.
	snap, ok := d.store.Snapshot(alert.ID)
	if !ok {
		snap = alert
	}

	now := d.clock.Now()
	for _, recipient := range d.directory.Recipients() {
		if !recipient.ShouldReceive(snap.Severity, now) {
			continue
		}

		for _, channel := range recipient.Channels {
			snd, ok := d.senders[channel]
			if !ok {
				d.logger.Warn("No sender registered for channel",
					zap.String("channel", string(channel)),
					zap.String("recipient", recipient.Name))
				continue
			}

			if err := snd.Send(ctx, snap, recipient); err != nil {
				d.logger.Error("Failed to send alert",
					zap.String("alert_id", snap.ID),
					zap.String("channel", string(channel)),
					zap.String("recipient", recipient.Name),
					zap.Error(err))
				continue
			}

			d.logger.Debug("Alert delivered",
				zap.String("alert_id", snap.ID),
				zap.String("channel", string(channel)),
				zap.String("recipient", recipient.Name))
		}
	}
}
