package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hazardwatch/alerting/internal/model"
)

type recordingSubmitter struct {
	alerts []*model.Alert
}

func (s *recordingSubmitter) Submit(_ context.Context, alert *model.Alert) error {
	s.alerts = append(s.alerts, alert)
	return nil
}

func testWatchdog(submitter Submitter, cpuUsage, memUsage float64) *Watchdog {
	w := NewWatchdog(zap.NewNop(), WatchdogConfig{
		Enabled:         true,
		Interval:        time.Second,
		CPUThreshold:    90,
		MemoryThreshold: 85,
		Cooldown:        5 * time.Minute,
	}, submitter)
	w.cpuPercent = func() (float64, error) { return cpuUsage, nil }
	w.memoryUsedPercent = func() (float64, error) { return memUsage, nil }
	return w
}

func TestWatchdogBelowThresholdsIsQuiet(t *testing.T) {
	submitter := &recordingSubmitter{}
	w := testWatchdog(submitter, 40, 50)

	w.sample(context.Background())
	require.Empty(t, submitter.alerts)
}

func TestWatchdogRaisesSystemAlerts(t *testing.T) {
	submitter := &recordingSubmitter{}
	w := testWatchdog(submitter, 97.5, 91)

	w.sample(context.Background())
	require.Len(t, submitter.alerts, 2)

	cpuAlert := submitter.alerts[0]
	require.NotEmpty(t, cpuAlert.ID)
	require.Equal(t, "system-cpu", cpuAlert.HazardID)
	require.Equal(t, model.SeverityHigh, cpuAlert.Severity)
	require.Equal(t, 97.5, cpuAlert.Metadata["usage_percent"])

	require.Equal(t, "system-memory", submitter.alerts[1].HazardID)
}

func TestWatchdogCooldownSuppressesRepeats(t *testing.T) {
	submitter := &recordingSubmitter{}
	w := testWatchdog(submitter, 97.5, 50)

	// A sustained spike over several samples raises one alert.
	w.sample(context.Background())
	w.sample(context.Background())
	w.sample(context.Background())
	require.Len(t, submitter.alerts, 1)

	// Once the cooldown lapses the next sample fires again.
	w.lastFired["system-cpu"] = time.Now().Add(-10 * time.Minute)
	w.sample(context.Background())
	require.Len(t, submitter.alerts, 2)
}

func TestWatchdogDisabledStartReturnsImmediately(t *testing.T) {
	submitter := &recordingSubmitter{}
	w := NewWatchdog(zap.NewNop(), WatchdogConfig{Enabled: false}, submitter)

	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	require.Empty(t, submitter.alerts)
}
