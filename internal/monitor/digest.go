package monitor

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hazardwatch/alerting/internal/model"
)

// DigestConfig controls the periodic alert summary.
type DigestConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Schedule is a cron expression with a seconds field.
	Schedule string `mapstructure:"schedule"`
}

// Reporter exposes the alert state the digest summarizes.
type Reporter interface {
	ActiveAlerts(severity *model.Severity) []*model.Alert
	Statistics() model.Statistics
}

// cronLogger adapts zap.Logger to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err))
}

// Digest logs a periodic summary of the active alert set and the
// acknowledgement statistics.
type Digest struct {
	logger   *zap.Logger
	config   DigestConfig
	reporter Reporter
	cron     *cron.Cron
}

// NewDigest creates the digest job on the given schedule.
func NewDigest(logger *zap.Logger, config DigestConfig, reporter Reporter) *Digest {
	named := logger.Named("digest")
	return &Digest{
		logger:   named,
		config:   config,
		reporter: reporter,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(&cronLogger{logger: named}))),
	}
}

// Start registers the cron entry and starts the scheduler.
func (d *Digest) Start() error {
	if !d.config.Enabled {
		d.logger.Info("Alert digest disabled")
		return nil
	}

	if _, err := d.cron.AddFunc(d.config.Schedule, d.report); err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", d.config.Schedule, err)
	}

	d.cron.Start()
	d.logger.Info("Alert digest scheduled", zap.String("schedule", d.config.Schedule))
	return nil
}

// Stop stops the scheduler and waits for a running report to finish.
func (d *Digest) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

// report logs one summary line plus one line per active alert.
func (d *Digest) report() {
	stats := d.reporter.Statistics()
	active := d.reporter.ActiveAlerts(nil)

	d.logger.Info("Alert digest",
		zap.Int("total_alerts", stats.TotalAlerts),
		zap.Int("active_alerts", stats.ActiveAlerts),
		zap.Int("acknowledged_alerts", stats.AcknowledgedAlerts),
		zap.Float64("average_acknowledgment_minutes", stats.AverageAcknowledgmentTime),
		zap.Any("by_severity", stats.BySeverity))

	for _, alert := range active {
		d.logger.Info("Active alert",
			zap.String("alert_id", alert.ID),
			zap.String("hazard_id", alert.HazardID),
			zap.String("severity", alert.Severity.String()),
			zap.String("title", alert.Title),
			zap.Int("escalation_count", alert.EscalationCount()))
	}
}
