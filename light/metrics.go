package light

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "light"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of light blocks marked verified.
	VerifiedBlocks metrics.Counter
	// Number of light blocks marked failed.
	FailedBlocks metrics.Counter
	// Number of light blocks fetched from the provider.
	Fetches metrics.Counter
	// Number of times a height range was split.
	Bisections metrics.Counter
	// Number of sessions by outcome.
	Sessions metrics.Counter
	// Time spent per session in seconds.
	SessionDuration metrics.Histogram
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		VerifiedBlocks: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "verified_blocks",
			Help:      "Number of light blocks marked verified.",
		}, labels).With(labelsAndValues...),
		FailedBlocks: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "failed_blocks",
			Help:      "Number of light blocks marked failed.",
		}, labels).With(labelsAndValues...),
		Fetches: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "fetches",
			Help:      "Number of light blocks fetched from the provider.",
		}, labels).With(labelsAndValues...),
		Bisections: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "bisections",
			Help:      "Number of times a height range was split.",
		}, labels).With(labelsAndValues...),
		Sessions: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "sessions",
			Help:      "Number of verification sessions by outcome.",
		}, append(labels, "outcome")).With(labelsAndValues...),
		SessionDuration: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "session_duration",
			Help:      "Time spent per verification session in seconds.",
			Buckets:   stdprometheus.ExponentialBuckets(0.001, 4, 10),
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		VerifiedBlocks:  discard.NewCounter(),
		FailedBlocks:    discard.NewCounter(),
		Fetches:         discard.NewCounter(),
		Bisections:      discard.NewCounter(),
		Sessions:        discard.NewCounter(),
		SessionDuration: discard.NewHistogram(),
	}
}
