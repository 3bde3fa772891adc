// Package telemetry records OpenTelemetry metrics for analytics operations.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/felixgeelhaar/sqlanalyst/domain/querylog"
)

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	queryExecutions    metric.Int64Counter
	errors             metric.Int64Counter
	retryAttempts      metric.Int64Counter
	breakerTransitions metric.Int64Counter
	rateLimitHits      metric.Int64Counter

	// Histograms
	queryDuration metric.Float64Histogram
	queryRows     metric.Int64Histogram

	// Gauges (using UpDownCounter for OpenTelemetry)
	breakerOpen metric.Int64UpDownCounter

	initOnce sync.Once
	initErr  error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter (default: "github.com/felixgeelhaar/sqlanalyst").
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// MeterProvider overrides the global provider.
	MeterProvider metric.MeterProvider
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/sqlanalyst",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		defaults := DefaultMetricsConfig()
		config.MeterName = defaults.MeterName
		config.MeterVersion = defaults.MeterVersion
	}

	provider := config.MeterProvider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{
		meter: meter,
	}

	mp.initOnce.Do(func() {
		mp.initErr = mp.initInstruments()
	})

	return mp
}

// initInstruments initializes all metric instruments.
func (mp *MetricsProvider) initInstruments() error {
	var err error

	mp.queryExecutions, err = mp.meter.Int64Counter(
		"analyst.query.executions",
		metric.WithDescription("Number of analytics operations"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return err
	}

	mp.errors, err = mp.meter.Int64Counter(
		"analyst.errors",
		metric.WithDescription("Number of failed operations by error code"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	mp.retryAttempts, err = mp.meter.Int64Counter(
		"analyst.retry.attempts",
		metric.WithDescription("Number of retried database calls"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	mp.breakerTransitions, err = mp.meter.Int64Counter(
		"analyst.breaker.transitions",
		metric.WithDescription("Number of circuit breaker state changes"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return err
	}

	mp.rateLimitHits, err = mp.meter.Int64Counter(
		"analyst.ratelimit.hits",
		metric.WithDescription("Number of tool calls rejected by the rate limiter"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	mp.queryDuration, err = mp.meter.Float64Histogram(
		"analyst.query.duration",
		metric.WithDescription("Duration of analytics operations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.queryRows, err = mp.meter.Int64Histogram(
		"analyst.query.rows",
		metric.WithDescription("Rows returned per operation"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return err
	}

	mp.breakerOpen, err = mp.meter.Int64UpDownCounter(
		"analyst.breaker.open",
		metric.WithDescription("Number of open circuit breakers"),
		metric.WithUnit("{circuit}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordQuery records one finished operation.
func (mp *MetricsProvider) RecordQuery(ctx context.Context, toolName string, success bool, duration time.Duration, rows *int) {
	attrs := metric.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.Bool("success", success),
	)

	mp.queryExecutions.Add(ctx, 1, attrs)
	mp.queryDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if rows != nil {
		mp.queryRows.Record(ctx, int64(*rows), metric.WithAttributes(attribute.String("tool.name", toolName)))
	}
}

// RecordError records a classified failure.
func (mp *MetricsProvider) RecordError(ctx context.Context, code, toolName string) {
	mp.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error.code", code),
		attribute.String("tool.name", toolName),
	))
}

// RecordRetry records a retry scheduled after a failed attempt.
func (mp *MetricsProvider) RecordRetry(ctx context.Context, attempt int, code string) {
	mp.retryAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("retry.attempt", attempt),
		attribute.String("error.code", code),
	))
}

// RecordBreakerTransition records a circuit breaker state change.
func (mp *MetricsProvider) RecordBreakerTransition(ctx context.Context, name, from, to string) {
	mp.breakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker.name", name),
		attribute.String("state.from", from),
		attribute.String("state.to", to),
	))

	attrs := metric.WithAttributes(attribute.String("breaker.name", name))
	switch {
	case to == "OPEN" && from != "OPEN":
		mp.breakerOpen.Add(ctx, 1, attrs)
	case from == "OPEN" && to != "OPEN":
		mp.breakerOpen.Add(ctx, -1, attrs)
	}
}

// RecordRateLimitHit records a rejected tool call.
func (mp *MetricsProvider) RecordRateLimitHit(ctx context.Context, toolName string) {
	mp.rateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("tool.name", toolName)))
}

// Record implements querylog.Sink so the provider can sit beside the other
// log sinks.
func (mp *MetricsProvider) Record(ctx context.Context, e querylog.Entry) error {
	mp.RecordQuery(ctx, e.ToolName, e.Success, e.ExecutionTime, e.RowsReturned)
	if !e.Success {
		mp.RecordError(ctx, e.ErrorCode, e.ToolName)
	}
	return nil
}

// NoopMetricsProvider is a no-op metrics provider for testing or when metrics are disabled.
type NoopMetricsProvider struct{}

// RecordQuery is a no-op.
func (NoopMetricsProvider) RecordQuery(context.Context, string, bool, time.Duration, *int) {}

// RecordError is a no-op.
func (NoopMetricsProvider) RecordError(context.Context, string, string) {}

// RecordRetry is a no-op.
func (NoopMetricsProvider) RecordRetry(context.Context, int, string) {}

// RecordBreakerTransition is a no-op.
func (NoopMetricsProvider) RecordBreakerTransition(context.Context, string, string, string) {}

// RecordRateLimitHit is a no-op.
func (NoopMetricsProvider) RecordRateLimitHit(context.Context, string) {}

// Record is a no-op.
func (NoopMetricsProvider) Record(context.Context, querylog.Entry) error { return nil }

// Metrics defines the interface for metrics recording.
type Metrics interface {
	querylog.Sink
	RecordQuery(ctx context.Context, toolName string, success bool, duration time.Duration, rows *int)
	RecordError(ctx context.Context, code, toolName string)
	RecordRetry(ctx context.Context, attempt int, code string)
	RecordBreakerTransition(ctx context.Context, name, from, to string)
	RecordRateLimitHit(ctx context.Context, toolName string)
}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = NoopMetricsProvider{}
)
