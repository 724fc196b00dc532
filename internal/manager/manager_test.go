package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/hazardwatch/alerting/internal/escalate"
	"github.com/hazardwatch/alerting/internal/model"
	"github.com/hazardwatch/alerting/internal/sender"
	"github.com/hazardwatch/alerting/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSender struct {
	mu    sync.Mutex
	sends []*model.Alert
}

func (s *recordingSender) Name() string { return "recording" }

func (s *recordingSender) Send(_ context.Context, alert *model.Alert, _ *model.Recipient) error {
	s.mu.Lock()
	s.sends = append(s.sends, alert)
	s.mu.Unlock()
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sends)
}

func (s *recordingSender) last() *model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sends) == 0 {
		return nil
	}
	return s.sends[len(s.sends)-1]
}

func startManager(t *testing.T, escalation escalate.Config) (*AlertManager, *recordingSender, *clock.Mock) {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	snd := &recordingSender{}
	m := New(zap.NewNop(), sender.Registry{model.ChannelConsole: snd}, escalation, WithClock(mock))
	m.AddRecipient(&model.Recipient{
		Name:      "On-Call",
		Channels:  []model.Channel{model.ChannelConsole},
		Threshold: model.SeverityLow,
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx))
	t.Cleanup(func() {
		m.Stop()
		cancel()
	})
	return m, snd, mock
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
}

func testAlert(id string, severity model.Severity) *model.Alert {
	return &model.Alert{
		ID:       id,
		HazardID: "HAZ-001",
		Severity: severity,
		Title:    "Smoke Detected",
		Message:  "Smoke detected near loading dock",
		Location: map[string]any{"building": "A"},
	}
}

func TestSubmitDeliversAndAcknowledge(t *testing.T) {
	m, snd, _ := startManager(t, escalate.Config{Enabled: false})

	require.NoError(t, m.Submit(context.Background(), testAlert("A", model.SeverityHigh)))
	waitFor(t, func() bool { return snd.count() == 1 })

	active := m.ActiveAlerts(nil)
	require.Len(t, active, 1)
	require.Equal(t, "A", active[0].ID)

	require.True(t, m.Acknowledge("A", "operator-1"))
	require.False(t, m.Acknowledge("A", "operator-2"))
	require.False(t, m.Acknowledge("unknown", "operator-1"))
	require.Empty(t, m.ActiveAlerts(nil))

	stats := m.Statistics()
	require.Equal(t, 1, stats.TotalAlerts)
	require.Equal(t, 0, stats.ActiveAlerts)
	require.Equal(t, 1, stats.AcknowledgedAlerts)
}

func TestSubmitValidation(t *testing.T) {
	m, _, _ := startManager(t, escalate.Config{Enabled: false})
	ctx := context.Background()

	err := m.Submit(ctx, testAlert("", model.SeverityLow))
	require.ErrorIs(t, err, ErrMissingAlertID)

	err = m.Submit(ctx, testAlert("A", model.Severity(9)))
	require.ErrorIs(t, err, ErrInvalidSeverity)

	require.NoError(t, m.Submit(ctx, testAlert("A", model.SeverityLow)))
	err = m.Submit(ctx, testAlert("A", model.SeverityLow))
	require.True(t, errors.Is(err, store.ErrDuplicateAlert))
}

func TestEscalationRedelivers(t *testing.T) {
	m, snd, mock := startManager(t, escalate.Config{
		Enabled:        true,
		Timeout:        5 * time.Minute,
		MaxEscalations: 3,
	})

	require.NoError(t, m.Submit(context.Background(), testAlert("A", model.SeverityLow)))
	waitFor(t, func() bool { return snd.count() == 1 })

	// Unacknowledged past the timeout: one level up, redelivered.
	waitFor(t, func() bool {
		mock.Add(30 * time.Second)
		return snd.count() == 2
	})
	require.Equal(t, model.SeverityMedium, snd.last().Severity)
	require.Equal(t, 1, snd.last().EscalationCount())

	// Acknowledging stops the chain; the already-armed timer fires on an
	// inactive id and does nothing.
	require.True(t, m.Acknowledge("A", "operator-1"))
	mock.Add(time.Hour)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 2, snd.count())

	stats := m.Statistics()
	require.Equal(t, 1, stats.AcknowledgedAlerts)
	require.Equal(t, 1, stats.BySeverity[model.SeverityMedium.String()])
}

func TestActiveAlertsSeverityFilter(t *testing.T) {
	m, snd, _ := startManager(t, escalate.Config{Enabled: false})
	ctx := context.Background()

	require.NoError(t, m.Submit(ctx, testAlert("A", model.SeverityLow)))
	require.NoError(t, m.Submit(ctx, testAlert("B", model.SeverityCritical)))
	waitFor(t, func() bool { return snd.count() == 2 })

	critical := model.SeverityCritical
	filtered := m.ActiveAlerts(&critical)
	require.Len(t, filtered, 1)
	require.Equal(t, "B", filtered[0].ID)
}
