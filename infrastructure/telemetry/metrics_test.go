package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMetrics installs a manual-reader meter provider and returns
// it along with a fresh metrics provider.
func setupTestMetrics(t *testing.T) (*metric.ManualReader, *MetricsProvider) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)

	mp := NewMetricsProvider(DefaultMetricsConfig())
	if mp.Error() != nil {
		t.Fatalf("failed to create metrics provider: %v", mp.Error())
	}

	return reader, mp
}

func collectNames(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	byName := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			byName[m.Name] = m
		}
	}
	return byName
}

func TestNewMetricsProvider(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	if mp == nil {
		t.Fatal("NewMetricsProvider returned nil")
	}
	if mp.Error() != nil {
		t.Errorf("unexpected error: %v", mp.Error())
	}
}

func TestMetricsProvider_RecordBackendRequest(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()
	mp.RecordBackendRequest(ctx, "anthropic", "claude-sonnet", true, 800*time.Millisecond)
	mp.RecordBackendRequest(ctx, "anthropic", "claude-sonnet", false, 20*time.Millisecond)

	byName := collectNames(t, reader)
	m, ok := byName["gateway.backend.requests"]
	if !ok {
		t.Fatal("gateway.backend.requests metric not found")
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 2 {
		t.Errorf("total backend requests = %d, want 2", total)
	}
	if _, ok := byName["gateway.backend.duration"]; !ok {
		t.Error("gateway.backend.duration metric not found")
	}
}

func TestMetricsProvider_RecordToolInvocation(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()
	mp.RecordToolInvocation(ctx, "echo", "local", false, 5*time.Millisecond)
	mp.RecordToolInvocation(ctx, "search", "provider:files", true, 50*time.Millisecond)

	byName := collectNames(t, reader)
	if _, ok := byName["gateway.tool.invocations"]; !ok {
		t.Error("gateway.tool.invocations metric not found")
	}
	if _, ok := byName["gateway.tool.duration"]; !ok {
		t.Error("gateway.tool.duration metric not found")
	}
}

func TestMetricsProvider_RecordToolCompilation(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	mp.RecordToolCompilation(context.Background(), "shout", true)

	byName := collectNames(t, reader)
	if _, ok := byName["gateway.tool.compilations"]; !ok {
		t.Error("gateway.tool.compilations metric not found")
	}
}

func TestMetricsProvider_RecordProviderEvent(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()
	mp.RecordProviderEvent(ctx, "files", "added")
	mp.RecordProviderEvent(ctx, "files", "reaped")

	byName := collectNames(t, reader)
	if _, ok := byName["gateway.provider.events"]; !ok {
		t.Error("gateway.provider.events metric not found")
	}
}

func TestMetricsProvider_RecordSession(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	mp.RecordSession(context.Background(), "done", 3, 2*time.Second)

	byName := collectNames(t, reader)
	m, ok := byName["gateway.session.turns"]
	if !ok {
		t.Fatal("gateway.session.turns metric not found")
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("turns total = %d, want 3", total)
	}
	if _, ok := byName["gateway.sessions"]; !ok {
		t.Error("gateway.sessions metric not found")
	}
	if _, ok := byName["gateway.session.duration"]; !ok {
		t.Error("gateway.session.duration metric not found")
	}
}

func TestMetricsProvider_ActiveSessions(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()
	mp.IncrementActiveSessions(ctx)
	mp.IncrementActiveSessions(ctx)
	mp.DecrementActiveSessions(ctx)

	byName := collectNames(t, reader)
	m, ok := byName["gateway.sessions.active"]
	if !ok {
		t.Fatal("gateway.sessions.active metric not found")
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 1 {
		t.Errorf("active sessions = %d, want 1", total)
	}
}

func TestNoopMetrics(t *testing.T) {
	// Verify that NoopMetrics doesn't panic.
	noop := NoopMetrics{}
	ctx := context.Background()

	noop.RecordBackendRequest(ctx, "mock", "m", true, time.Second)
	noop.RecordToolInvocation(ctx, "tool", "local", false, time.Second)
	noop.RecordToolCompilation(ctx, "tool", true)
	noop.RecordProviderEvent(ctx, "p", "added")
	noop.RecordSession(ctx, "done", 1, time.Second)
	noop.IncrementActiveSessions(ctx)
	noop.DecrementActiveSessions(ctx)
}

func TestDefaultMetricsConfig(t *testing.T) {
	config := DefaultMetricsConfig()

	if config.MeterName == "" {
		t.Error("MeterName should not be empty")
	}
	if config.MeterVersion == "" {
		t.Error("MeterVersion should not be empty")
	}
}
