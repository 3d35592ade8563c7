// Package telemetry provides OpenTelemetry metrics for the gateway.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordBackendRequest(ctx context.Context, backend, model string, success bool, duration time.Duration)
	RecordToolInvocation(ctx context.Context, toolName, origin string, failed bool, duration time.Duration)
	RecordToolCompilation(ctx context.Context, toolName string, success bool)
	RecordProviderEvent(ctx context.Context, provider, event string)
	RecordSession(ctx context.Context, finalState string, turns int, duration time.Duration)
	IncrementActiveSessions(ctx context.Context)
	DecrementActiveSessions(ctx context.Context)
}

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter

	backendRequests  metric.Int64Counter
	toolInvocations  metric.Int64Counter
	toolCompilations metric.Int64Counter
	providerEvents   metric.Int64Counter
	sessions         metric.Int64Counter
	turns            metric.Int64Counter

	backendDuration metric.Float64Histogram
	toolDuration    metric.Float64Histogram
	sessionDuration metric.Float64Histogram

	activeSessions metric.Int64UpDownCounter

	initErr error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter.
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/gateway-go",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider bound to the global
// meter provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config = DefaultMetricsConfig()
	}

	provider := otel.GetMeterProvider()
	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{meter: meter}
	mp.initErr = mp.initInstruments()
	return mp
}

func (mp *MetricsProvider) initInstruments() error {
	var err error

	mp.backendRequests, err = mp.meter.Int64Counter(
		"gateway.backend.requests",
		metric.WithDescription("Number of model backend requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	mp.toolInvocations, err = mp.meter.Int64Counter(
		"gateway.tool.invocations",
		metric.WithDescription("Number of tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return err
	}

	mp.toolCompilations, err = mp.meter.Int64Counter(
		"gateway.tool.compilations",
		metric.WithDescription("Number of dynamic tool compilations"),
		metric.WithUnit("{compilation}"),
	)
	if err != nil {
		return err
	}

	mp.providerEvents, err = mp.meter.Int64Counter(
		"gateway.provider.events",
		metric.WithDescription("Provider lifecycle events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	mp.sessions, err = mp.meter.Int64Counter(
		"gateway.sessions",
		metric.WithDescription("Number of completed sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return err
	}

	mp.turns, err = mp.meter.Int64Counter(
		"gateway.session.turns",
		metric.WithDescription("Model turns consumed by sessions"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		return err
	}

	mp.backendDuration, err = mp.meter.Float64Histogram(
		"gateway.backend.duration",
		metric.WithDescription("Duration of backend requests"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.toolDuration, err = mp.meter.Float64Histogram(
		"gateway.tool.duration",
		metric.WithDescription("Duration of tool invocations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.sessionDuration, err = mp.meter.Float64Histogram(
		"gateway.session.duration",
		metric.WithDescription("Duration of sessions"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.activeSessions, err = mp.meter.Int64UpDownCounter(
		"gateway.sessions.active",
		metric.WithDescription("Number of in-flight sessions"),
		metric.WithUnit("{session}"),
	)
	return err
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordBackendRequest records one completion request to a model backend.
func (mp *MetricsProvider) RecordBackendRequest(ctx context.Context, backend, model string, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("backend", backend),
		attribute.String("model", model),
		attribute.Bool("success", success),
	}
	mp.backendRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.backendDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordToolInvocation records one tool invocation.
func (mp *MetricsProvider) RecordToolInvocation(ctx context.Context, toolName, origin string, failed bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("tool.name", toolName),
		attribute.String("tool.origin", origin),
		attribute.Bool("failed", failed),
	}
	mp.toolInvocations.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.toolDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordToolCompilation records a dynamic tool compilation attempt.
func (mp *MetricsProvider) RecordToolCompilation(ctx context.Context, toolName string, success bool) {
	mp.toolCompilations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.Bool("success", success),
	))
}

// RecordProviderEvent records a provider lifecycle event such as added,
// removed, or reaped.
func (mp *MetricsProvider) RecordProviderEvent(ctx context.Context, provider, event string) {
	mp.providerEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("event", event),
	))
}

// RecordSession records a finished session.
func (mp *MetricsProvider) RecordSession(ctx context.Context, finalState string, turns int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("state.final", finalState),
	}
	mp.sessions.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.turns.Add(ctx, int64(turns), metric.WithAttributes(attrs...))
	mp.sessionDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// IncrementActiveSessions increments the in-flight session gauge.
func (mp *MetricsProvider) IncrementActiveSessions(ctx context.Context) {
	mp.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the in-flight session gauge.
func (mp *MetricsProvider) DecrementActiveSessions(ctx context.Context) {
	mp.activeSessions.Add(ctx, -1)
}

// NoopMetrics is a no-op recorder used when metrics are disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordBackendRequest(ctx context.Context, backend, model string, success bool, duration time.Duration) {
}

func (NoopMetrics) RecordToolInvocation(ctx context.Context, toolName, origin string, failed bool, duration time.Duration) {
}

func (NoopMetrics) RecordToolCompilation(ctx context.Context, toolName string, success bool) {}

func (NoopMetrics) RecordProviderEvent(ctx context.Context, provider, event string) {}

func (NoopMetrics) RecordSession(ctx context.Context, finalState string, turns int, duration time.Duration) {
}

func (NoopMetrics) IncrementActiveSessions(ctx context.Context) {}

func (NoopMetrics) DecrementActiveSessions(ctx context.Context) {}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = NoopMetrics{}
)
