package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestNewMetricsCreatesAllInstruments(t *testing.T) {
	m, err := NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	if m.CompletionDuration == nil || m.RecognitionDuration == nil || m.SynthesisDuration == nil {
		t.Error("expected all histograms to be initialised")
	}
	if m.ProviderRequests == nil || m.ProviderErrors == nil || m.FallbackExhausted == nil {
		t.Error("expected all counters to be initialised")
	}
	if m.PendingCompletions == nil || m.ActiveListens == nil {
		t.Error("expected all gauges to be initialised")
	}
}

func TestMetricsRecordedValuesAreCollectable(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	ctx := context.Background()
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", "openai"),
		attribute.String("status", "ok"),
	))
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", "gemini"),
		attribute.String("status", "error"),
	))
	m.CompletionDuration.Record(ctx, 0.42)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(rm.ScopeMetrics) != 1 {
		t.Fatalf("expected 1 scope, got %d", len(rm.ScopeMetrics))
	}
	sm := rm.ScopeMetrics[0]
	if sm.Scope.Name != meterName {
		t.Errorf("scope name = %q, want %q", sm.Scope.Name, meterName)
	}

	var total int64
	var sawHistogram bool
	for _, md := range sm.Metrics {
		switch md.Name {
		case "docbuddy.provider.requests":
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("provider.requests data type = %T", md.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		case "docbuddy.completion.duration":
			sawHistogram = true
		}
	}
	if total != 2 {
		t.Errorf("provider.requests total = %d, want 2", total)
	}
	if !sawHistogram {
		t.Error("expected completion.duration histogram in collected metrics")
	}
}

func TestLoggerAddsTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	if l := Logger(ctx); l == nil {
		t.Fatal("Logger() returned nil inside a span")
	}
	if !trace.SpanContextFromContext(ctx).HasTraceID() {
		t.Fatal("test setup: span context has no trace id")
	}
	// Without a span the default logger is returned unchanged.
	if l := Logger(context.Background()); l == nil {
		t.Fatal("Logger() returned nil without a span")
	}
}

func TestInitProviderShutdown(t *testing.T) {
	ctx := context.Background()
	shutdown, err := InitProvider(ctx, ProviderConfig{ServiceName: "docbuddy-test"})
	if err != nil {
		t.Fatalf("InitProvider() error = %v", err)
	}
	if err := shutdown(ctx); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}
