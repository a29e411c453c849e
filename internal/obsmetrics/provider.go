// Package obsmetrics is the pluggable metrics-provider abstraction used
// across the ingestion pipeline: a small vendor-neutral Provider
// interface with Prometheus and OpenTelemetry backends, plus a no-op for
// when data_intelligence.features.performance_tracking is disabled.
// Grounded directly on the teacher's internal metrics abstraction
// (engine/internal/telemetry/metrics/metrics.go) and its two concrete
// backends (engine/telemetry/metrics/prometheus.go, otel_provider.go).
package obsmetrics

import "context"

// Provider is the minimal metrics contract every backend implements.
type Provider interface {
	NewCounter(opts CounterOpts) Counter
	NewGauge(opts GaugeOpts) Gauge
	NewHistogram(opts HistogramOpts) Histogram
	NewTimer(h HistogramOpts) func() Timer
	Health(ctx context.Context) error
}

// Counter, Gauge, Histogram and Timer are the instrument handles a
// Provider hands back; labels are positional, matching the Opts.Labels
// key order.
type Counter interface{ Inc(delta float64, labels ...string) }
type Gauge interface {
	Set(v float64, labels ...string)
	Add(delta float64, labels ...string)
}
type Histogram interface{ Observe(v float64, labels ...string) }
type Timer interface{ ObserveDuration(labels ...string) }

// CommonOpts names and documents one instrument.
type CommonOpts struct {
	Namespace, Subsystem, Name, Help string
	Labels                           []string
}

type CounterOpts struct{ CommonOpts }
type GaugeOpts struct{ CommonOpts }
type HistogramOpts struct {
	CommonOpts
	Buckets []float64
}

type noopProvider struct{}
type noopCounter struct{}
type noopGauge struct{}
type noopHistogram struct{}
type noopTimer struct{}

// NewNoopProvider returns a Provider whose instruments discard every
// observation, for data_intelligence.features.performance_tracking.enabled=false.
func NewNoopProvider() Provider { return &noopProvider{} }

func (p *noopProvider) NewCounter(CounterOpts) Counter     { return noopCounter{} }
func (p *noopProvider) NewGauge(GaugeOpts) Gauge           { return noopGauge{} }
func (p *noopProvider) NewHistogram(HistogramOpts) Histogram { return noopHistogram{} }
func (p *noopProvider) NewTimer(HistogramOpts) func() Timer {
	return func() Timer { return noopTimer{} }
}
func (p *noopProvider) Health(context.Context) error { return nil }

func (noopCounter) Inc(float64, ...string)       {}
func (noopGauge) Set(float64, ...string)         {}
func (noopGauge) Add(float64, ...string)         {}
func (noopHistogram) Observe(float64, ...string) {}
func (noopTimer) ObserveDuration(...string)      {}
