// Package monitor watches the host the alerting process runs on and raises
// system hazard alerts through the same pipeline the detection layers use.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/hazardwatch/alerting/internal/model"
)

// WatchdogConfig controls the system resource watchdog.
type WatchdogConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`

	// CPUThreshold and MemoryThreshold are percentages; crossing one raises
	// a system hazard alert.
	CPUThreshold    float64 `mapstructure:"cpu_threshold"`
	MemoryThreshold float64 `mapstructure:"memory_threshold"`

	// Cooldown is the minimum gap between two alerts for the same resource,
	// so a sustained spike raises one alert instead of one per sample.
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// Submitter accepts watchdog alerts into the delivery pipeline.
type Submitter interface {
	Submit(ctx context.Context, alert *model.Alert) error
}

// Watchdog samples CPU and memory usage on an interval and submits a
// high-severity alert when a threshold is crossed.
type Watchdog struct {
	logger *zap.Logger
	config WatchdogConfig
	alerts Submitter
	stop   chan struct{}
	done   chan struct{}

	// Sampling functions, replaceable in tests.
	cpuPercent        func() (float64, error)
	memoryUsedPercent func() (float64, error)

	lastFired map[string]time.Time
}

// NewWatchdog creates a system resource watchdog submitting through alerts.
func NewWatchdog(logger *zap.Logger, config WatchdogConfig, alerts Submitter) *Watchdog {
	return &Watchdog{
		logger: logger.Named("watchdog"),
		config: config,
		alerts: alerts,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		cpuPercent: func() (float64, error) {
			percent, err := cpu.Percent(time.Second, false)
			if err != nil {
				return 0, err
			}
			return percent[0], nil
		},
		memoryUsedPercent: func() (float64, error) {
			info, err := mem.VirtualMemory()
			if err != nil {
				return 0, err
			}
			return info.UsedPercent, nil
		},
		lastFired: make(map[string]time.Time),
	}
}

// Start starts the sampling loop.
func (w *Watchdog) Start(ctx context.Context) error {
	if !w.config.Enabled {
		w.logger.Info("System watchdog disabled")
		close(w.done)
		return nil
	}

	w.logger.Info("Starting system watchdog",
		zap.Duration("interval", w.config.Interval),
		zap.Float64("cpu_threshold", w.config.CPUThreshold),
		zap.Float64("memory_threshold", w.config.MemoryThreshold))

	go w.run(ctx)
	return nil
}

// Stop stops the sampling loop.
func (w *Watchdog) Stop() {
	close(w.stop)
	<-w.done
}

func (w *Watchdog) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.sample(ctx)
		}
	}
}

func (w *Watchdog) sample(ctx context.Context) {
	cpuUsage, err := w.cpuPercent()
	if err != nil {
		w.logger.Error("Failed to get CPU usage", zap.Error(err))
	} else {
		w.check(ctx, "system-cpu", "High CPU Usage", cpuUsage, w.config.CPUThreshold)
	}

	memUsage, err := w.memoryUsedPercent()
	if err != nil {
		w.logger.Error("Failed to get memory usage", zap.Error(err))
	} else {
		w.check(ctx, "system-memory", "High Memory Usage", memUsage, w.config.MemoryThreshold)
	}
}

// check raises an alert when usage crosses the threshold, at most once per
// cooldown per resource.
func (w *Watchdog) check(ctx context.Context, hazardID, title string, usage, threshold float64) {
	if threshold <= 0 || usage < threshold {
		return
	}

	now := time.Now()
	if last, ok := w.lastFired[hazardID]; ok && now.Sub(last) < w.config.Cooldown {
		return
	}
	w.lastFired[hazardID] = now

	alert := &model.Alert{
		ID:       uuid.New().String(),
		HazardID: hazardID,
		Severity: model.SeverityHigh,
		Title:    title,
		Message:  fmt.Sprintf("%s: %.1f%% (threshold %.1f%%)", title, usage, threshold),
		Metadata: map[string]interface{}{
			"usage_percent":     usage,
			"threshold_percent": threshold,
		},
	}

	if err := w.alerts.Submit(ctx, alert); err != nil {
		w.logger.Error("Failed to submit watchdog alert",
			zap.String("hazard_id", hazardID),
			zap.Error(err))
		return
	}

	w.logger.Warn("System resource threshold crossed",
		zap.String("hazard_id", hazardID),
		zap.Float64("usage_percent", usage),
		zap.Float64("threshold_percent", threshold))
}
