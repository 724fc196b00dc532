package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hazardwatch/alerting/internal/model"
	"github.com/hazardwatch/alerting/internal/testutil"
)

func testAlert() *model.Alert {
	return &model.Alert{
		ID:        "ALERT-001",
		HazardID:  "HAZ-042",
		Severity:  model.SeverityHigh,
		Title:     "Fire Detected",
		Message:   "Fire detected in Building A",
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPublisherTriggered(t *testing.T) {
	js, cleanup := testutil.StartJetStream(t)
	defer cleanup()

	logger, _ := zap.NewDevelopment()
	p, err := NewPublisher(logger, js)
	require.NoError(t, err)

	received := make(chan *nats.Msg, 1)
	sub, err := js.Subscribe("alert.triggered.high", func(msg *nats.Msg) {
		received <- msg
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	p.Triggered(testAlert())

	select {
	case msg := <-received:
		var wire map[string]any
		require.NoError(t, json.Unmarshal(msg.Data, &wire))
		require.Equal(t, "ALERT-001", wire["alert_id"])
		require.Equal(t, "HAZ-042", wire["hazard_id"])
		require.Equal(t, "high", wire["severity"])
		require.Equal(t, false, wire["acknowledged"])
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for alert event")
	}
}

func TestPublisherLifecycleSubjects(t *testing.T) {
	js, cleanup := testutil.StartJetStream(t)
	defer cleanup()

	logger := zap.NewNop()
	p, err := NewPublisher(logger, js)
	require.NoError(t, err)

	subjects := make(chan string, 2)
	sub, err := js.Subscribe("alert.>", func(msg *nats.Msg) {
		subjects <- msg.Subject
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	p.Escalated(testAlert())
	p.Acknowledged(testAlert())

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case s := <-subjects:
			got[s] = true
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for alert events")
		}
	}
	require.True(t, got["alert.escalated"])
	require.True(t, got["alert.acknowledged"])
}

func TestNilPublisherIsSafe(t *testing.T) {
	var p *Publisher
	p.Triggered(testAlert())
	p.Escalated(testAlert())
	p.Acknowledged(testAlert())
}

func TestNewPublisherReusesStream(t *testing.T) {
	js, cleanup := testutil.StartJetStream(t)
	defer cleanup()

	logger := zap.NewNop()
	_, err := NewPublisher(logger, js)
	require.NoError(t, err)
	_, err = NewPublisher(logger, js)
	require.NoError(t, err)
}
