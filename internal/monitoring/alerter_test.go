package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealmachine-cli/internal/config"
)

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.5,
		ConsecutiveFailures:  3,
	})

	snap := &MetricsSnapshot{
		RunsTotal:           10,
		RunsCompleted:       8,
		RunsFailed:          2,
		FailRate:            0.2,
		ConsecutiveFailures: 1,
		LookbackHours:       24,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.5})

	snap := &MetricsSnapshot{
		RunsTotal:     10,
		RunsCompleted: 3,
		RunsFailed:    7,
		FailRate:      0.7,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertScrapeFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "70.0%")
}

func TestAlerter_Evaluate_MinimumRunsRequired(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.1})

	snap := &MetricsSnapshot{
		RunsTotal:     3,
		RunsFailed:    2,
		FailRate:      0.666,
		LookbackHours: 24,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_ConsecutiveFailures(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{ConsecutiveFailures: 3})

	alerts := a.Evaluate(&MetricsSnapshot{ConsecutiveFailures: 4})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertConsecutiveFailures, alerts[0].Type)
	assert.Equal(t, "Last 4 scrape runs failed", alerts[0].Message)
	assert.NotContains(t, alerts[0].Details, "last_completed_at")
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.5,
		ConsecutiveFailures:  3,
	})

	snap := &MetricsSnapshot{
		RunsTotal:           6,
		RunsFailed:          6,
		FailRate:            1.0,
		ConsecutiveFailures: 6,
		LookbackHours:       24,
	}

	alerts := a.Evaluate(snap)
	types := make(map[AlertType]bool)
	for _, a := range alerts {
		types[a.Type] = true
	}
	assert.Len(t, alerts, 2)
	assert.True(t, types[AlertScrapeFailureRate])
	assert.True(t, types[AlertConsecutiveFailures])
}

func TestAlerter_Evaluate_DisabledThresholds(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	snap := &MetricsSnapshot{RunsTotal: 100, RunsFailed: 100, FailRate: 1.0, ConsecutiveFailures: 100}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	alerts := []Alert{
		{Type: AlertScrapeFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertConsecutiveFailures, Severity: "high", Message: "test alert 2"},
	}

	assert.Equal(t, 2, a.SendAlerts(context.Background(), alerts))
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertScrapeFailureRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertScrapeFailureRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}
