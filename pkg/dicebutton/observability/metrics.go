package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records button-interaction metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordClick records a handled click with its duration and error status.
	RecordClick(ctx context.Context, commandID, encoding, outcome string, duration time.Duration, err error)

	// RecordFlowStart records the creation of a new flow.
	RecordFlowStart(ctx context.Context, commandID string)

	// RecordLegacyMigration records a legacy identifier bridged into a
	// flow record.
	RecordLegacyMigration(ctx context.Context, commandID, encoding string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	clicks           metric.Int64Counter
	clickLatency     metric.Float64Histogram
	clickErrors      metric.Int64Counter
	flowStarts       metric.Int64Counter
	legacyMigrations metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("dicebutton")

	clicks, err := meter.Int64Counter("dicebutton.click.count",
		metric.WithDescription("Number of handled button clicks"),
	)
	if err != nil {
		return nil, err
	}

	clickLatency, err := meter.Float64Histogram("dicebutton.click.latency_ms",
		metric.WithDescription("Click handling latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	clickErrors, err := meter.Int64Counter("dicebutton.click.errors",
		metric.WithDescription("Number of click handling errors"),
	)
	if err != nil {
		return nil, err
	}

	flowStarts, err := meter.Int64Counter("dicebutton.flow.starts",
		metric.WithDescription("Number of flows started"),
	)
	if err != nil {
		return nil, err
	}

	legacyMigrations, err := meter.Int64Counter("dicebutton.legacy.migrations",
		metric.WithDescription("Number of legacy identifiers migrated"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		clicks:           clicks,
		clickLatency:     clickLatency,
		clickErrors:      clickErrors,
		flowStarts:       flowStarts,
		legacyMigrations: legacyMigrations,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordClick records a handled click.
func (m *otelMetrics) RecordClick(ctx context.Context, commandID, encoding, outcome string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("command_id", commandID),
		attribute.String("encoding", encoding),
		attribute.String("outcome", outcome),
	}

	m.clicks.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.clickLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.clickErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordFlowStart records a new flow.
func (m *otelMetrics) RecordFlowStart(ctx context.Context, commandID string) {
	m.flowStarts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command_id", commandID),
	))
}

// RecordLegacyMigration records a bridged legacy identifier.
func (m *otelMetrics) RecordLegacyMigration(ctx context.Context, commandID, encoding string) {
	m.legacyMigrations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command_id", commandID),
		attribute.String("encoding", encoding),
	))
}
