package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSeverityOrdering(t *testing.T) {
	require.True(t, SeverityLow < SeverityMedium)
	require.True(t, SeverityMedium < SeverityHigh)
	require.True(t, SeverityHigh < SeverityCritical)
}

func TestSeverityNextSaturates(t *testing.T) {
	require.Equal(t, SeverityMedium, SeverityLow.Next())
	require.Equal(t, SeverityHigh, SeverityMedium.Next())
	require.Equal(t, SeverityCritical, SeverityHigh.Next())
	require.Equal(t, SeverityCritical, SeverityCritical.Next())
}

func TestParseSeverity(t *testing.T) {
	for _, s := range Severities {
		parsed, err := ParseSeverity(s.String())
		require.NoError(t, err)
		require.Equal(t, s, parsed)
	}

	_, err := ParseSeverity("fatal")
	require.Error(t, err)
}

func TestSeverityJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(SeverityHigh)
	require.NoError(t, err)
	require.JSONEq(t, `"high"`, string(data))

	var s Severity
	require.NoError(t, json.Unmarshal(data, &s))
	require.Equal(t, SeverityHigh, s)
}

func TestAlertSerializedRepresentation(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ackedAt := created.Add(2 * time.Minute)

	alert := &Alert{
		ID:             "ALERT-001",
		HazardID:       "HAZ-042",
		Severity:       SeverityHigh,
		Title:          "Fire Detected",
		Message:        "Fire detected in Building A, Floor 2",
		CreatedAt:      created,
		Location:       map[string]any{"building": "A", "floor": 2},
		ImagePath:      "frames/haz-042.jpg",
		Metadata:       map[string]any{"camera": "cam-7"},
		Acknowledged:   true,
		AcknowledgedBy: "operator-1",
		AcknowledgedAt: &ackedAt,
	}

	data, err := json.Marshal(alert)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))

	require.Equal(t, "ALERT-001", wire["alert_id"])
	require.Equal(t, "HAZ-042", wire["hazard_id"])
	require.Equal(t, "high", wire["severity"])
	require.Equal(t, "Fire Detected", wire["title"])
	require.Equal(t, "2024-03-01T10:00:00Z", wire["timestamp"])
	require.Equal(t, true, wire["acknowledged"])

	// The acknowledgement actor and time stay internal.
	require.NotContains(t, wire, "acknowledged_by")
	require.NotContains(t, wire, "acknowledged_at")
}

func TestAlertEscalationCount(t *testing.T) {
	alert := &Alert{ID: "a"}
	require.Equal(t, 0, alert.EscalationCount())

	alert.Metadata = map[string]any{MetaEscalationCount: 2}
	require.Equal(t, 2, alert.EscalationCount())

	// Counters read back from JSON arrive as float64.
	alert.Metadata[MetaEscalationCount] = float64(3)
	require.Equal(t, 3, alert.EscalationCount())
}

func TestAlertClone(t *testing.T) {
	alert := &Alert{
		ID:       "a",
		Severity: SeverityLow,
		Metadata: map[string]any{MetaEscalationCount: 1},
		Location: map[string]any{"zone": "north"},
	}

	clone := alert.Clone()
	clone.Severity = SeverityCritical
	clone.Metadata[MetaEscalationCount] = 5
	clone.Location["zone"] = "south"

	require.Equal(t, SeverityLow, alert.Severity)
	require.Equal(t, 1, alert.EscalationCount())
	require.Equal(t, "north", alert.Location["zone"])
}
