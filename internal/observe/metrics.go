// Package observe provides the note trainer's OpenTelemetry metrics.
//
// Instruments are created through the OpenTelemetry Metrics API. [InitProvider]
// installs a Prometheus exporter bridge so the values can be scraped from a
// /metrics endpoint. Tests should use [NewMetrics] with their own
// [metric.MeterProvider].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/0xlemi/notetrainer"

// Frame outcomes recorded on the frames counter.
const (
	OutcomeSilent   = "silent"
	OutcomeRejected = "rejected"
	OutcomePending  = "pending"
	OutcomeStable   = "stable"
)

// Metrics holds the metric instruments of the application.
type Metrics struct {
	// Frames counts analysed frames. Use with attribute outcome.
	Frames metric.Int64Counter

	// Emissions counts results pushed to the display. Use with attribute
	// valid ("true" or "false").
	Emissions metric.Int64Counter

	// EstimateDuration tracks the time spent in the pitch estimator.
	EstimateDuration metric.Float64Histogram

	// Confidence tracks the clarity of voiced estimates.
	Confidence metric.Float64Histogram

	// ActiveSessions tracks the number of listening sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// estimateBuckets are tuned for a single frame (a few hundred microseconds
// for the FFT path, low milliseconds for the direct path at N=4096).
var estimateBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05,
}

var confidenceBuckets = []float64{
	0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 0.98, 1,
}

// NewMetrics creates all instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Frames, err = m.Int64Counter("notetrainer.frames",
		metric.WithDescription("Analysed audio frames by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Emissions, err = m.Int64Counter("notetrainer.emissions",
		metric.WithDescription("Results delivered to the display."),
	); err != nil {
		return nil, err
	}
	if met.EstimateDuration, err = m.Float64Histogram("notetrainer.estimate.duration",
		metric.WithDescription("Latency of one pitch estimate."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(estimateBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Confidence, err = m.Float64Histogram("notetrainer.confidence",
		metric.WithDescription("Clarity of voiced pitch estimates."),
		metric.WithExplicitBucketBoundaries(confidenceBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("notetrainer.sessions.active",
		metric.WithDescription("Number of sessions currently listening."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] built on
// [otel.GetMeterProvider]. It panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordFrame counts one analysed frame.
func (m *Metrics) RecordFrame(ctx context.Context, outcome string) {
	m.Frames.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordEstimate records the estimator latency and, for voiced frames, its
// confidence.
func (m *Metrics) RecordEstimate(ctx context.Context, d time.Duration, confidence float64) {
	m.EstimateDuration.Record(ctx, d.Seconds())
	if confidence > 0 {
		m.Confidence.Record(ctx, confidence)
	}
}

// RecordEmission counts one result delivered to the display.
func (m *Metrics) RecordEmission(ctx context.Context, valid bool) {
	v := "false"
	if valid {
		v = "true"
	}
	m.Emissions.Add(ctx, 1, metric.WithAttributes(attribute.String("valid", v)))
}
