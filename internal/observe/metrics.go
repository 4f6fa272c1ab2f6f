// Package observe provides application-wide observability primitives for
// DocBuddy: OpenTelemetry metrics, tracing, and structured logging helpers.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all DocBuddy metrics.
const meterName = "github.com/MrWong99/docbuddy"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// CompletionDuration tracks end-to-end completion latency across the
	// whole provider chain.
	CompletionDuration metric.Float64Histogram

	// RecognitionDuration tracks one-shot speech-to-text latency.
	RecognitionDuration metric.Float64Histogram

	// SynthesisDuration tracks text-to-speech synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts completion provider attempts. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts completion provider failures. Use with attribute:
	//   attribute.String("provider", ...)
	ProviderErrors metric.Int64Counter

	// FallbackExhausted counts completion calls for which every provider in
	// the chain failed and the fixed failure turn was surfaced.
	FallbackExhausted metric.Int64Counter

	// --- Gauges ---

	// PendingCompletions tracks outstanding completion requests (0 or 1 by
	// design: at most one request may be pending per session).
	PendingCompletions metric.Int64UpDownCounter

	// ActiveListens tracks active listen cycles (likewise 0 or 1).
	ActiveListens metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// remote inference and speech round-trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.CompletionDuration, err = m.Float64Histogram("docbuddy.completion.duration",
		metric.WithDescription("Latency of one completion call across the provider chain."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RecognitionDuration, err = m.Float64Histogram("docbuddy.recognition.duration",
		metric.WithDescription("Latency of one-shot speech recognition."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("docbuddy.synthesis.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("docbuddy.provider.requests",
		metric.WithDescription("Total completion provider attempts by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("docbuddy.provider.errors",
		metric.WithDescription("Total completion provider failures by provider."),
	); err != nil {
		return nil, err
	}
	if met.FallbackExhausted, err = m.Int64Counter("docbuddy.fallback.exhausted",
		metric.WithDescription("Completion calls for which every provider failed."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.PendingCompletions, err = m.Int64UpDownCounter("docbuddy.pending_completions",
		metric.WithDescription("Outstanding completion requests."),
	); err != nil {
		return nil, err
	}
	if met.ActiveListens, err = m.Int64UpDownCounter("docbuddy.active_listens",
		metric.WithDescription("Active speech listen cycles."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}
