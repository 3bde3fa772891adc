package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.ServiceName != "sqlanalyst" {
		t.Errorf("ServiceName = %s", cfg.ServiceName)
	}
	if cfg.Tracing.Enabled || cfg.Tracing.SampleRate != 1.0 {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	for _, opt := range []Option{
		WithServiceName("svc"),
		WithServiceVersion("2.0.0"),
		WithEnvironment("prod"),
		WithTracing(ExporterOTLP, "collector:4317"),
		WithTracingInsecure(),
		WithSampleRate(0.25),
		WithMetrics(),
	} {
		opt(&cfg)
	}

	if cfg.ServiceName != "svc" || cfg.ServiceVersion != "2.0.0" || cfg.Environment != "prod" {
		t.Errorf("service fields = %+v", cfg)
	}
	tr := cfg.Tracing
	if !tr.Enabled || tr.Exporter != ExporterOTLP || tr.Endpoint != "collector:4317" || !tr.Insecure || tr.SampleRate != 0.25 {
		t.Errorf("Tracing = %+v", tr)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics not enabled")
	}
}

func TestNew_Noop(t *testing.T) {
	t.Parallel()

	p, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, span := p.Tracer("test").Start(context.Background(), "op")
	if span.IsRecording() {
		t.Error("noop tracer should not record")
	}
	span.End()
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_UnknownExporter(t *testing.T) {
	t.Parallel()

	_, err := New(WithTracing("zipkin", ""))
	if !errors.Is(err, ErrUnknownExporter) {
		t.Errorf("error = %v, want ErrUnknownExporter", err)
	}
}

func TestSampler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		if got := sampler(tt.rate).Description(); got != tt.want {
			t.Errorf("sampler(%v) = %s, want %s", tt.rate, got, tt.want)
		}
	}
}

func TestStartSpan(t *testing.T) {
	t.Parallel()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := tp.Tracer("test")

	ctx, end := StartSpan(context.Background(), tracer, "calculate-metrics", AttrTool.String("calculate-metrics"))
	Annotate(ctx, AttrRows.Int(3))
	end(nil)

	_, end = StartSpan(context.Background(), tracer, "rank-entities")
	end(errors.New("boom"))

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}

	ok := spans[0]
	if ok.Name() != "calculate-metrics" || ok.Status().Code != codes.Ok {
		t.Errorf("span 0 = %s %v", ok.Name(), ok.Status())
	}
	var sawRows bool
	for _, kv := range ok.Attributes() {
		if kv.Key == AttrRows && kv.Value == attribute.IntValue(3) {
			sawRows = true
		}
	}
	if !sawRows {
		t.Errorf("attributes = %v", ok.Attributes())
	}

	failed := spans[1]
	if failed.Status().Code != codes.Error || failed.Status().Description != "boom" {
		t.Errorf("span 1 status = %v", failed.Status())
	}
	if len(failed.Events()) == 0 {
		t.Error("expected recorded error event")
	}
}
