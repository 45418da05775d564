// Package metrics holds the prometheus collectors of the service.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "moodmusic"

// Metrics is a prometheus.Collector over all service metrics.
type Metrics struct {
	synthesisTotal    *prometheus.CounterVec
	synthesisDuration *prometheus.HistogramVec
	synthesisInFlight prometheus.Gauge

	classificationsTotal *prometheus.CounterVec
	tracksTotal          *prometheus.CounterVec
	catalogErrorsTotal   *prometheus.CounterVec
}

// New creates the collectors and registers them with registry.
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		synthesisTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "synthesis_requests_total",
				Help:      "Synthesis calls by operation and outcome",
			},
			[]string{"operation", "outcome"}, // operation: generate, regenerate; outcome: success, timeout, unreachable, status, invalid_response, canceled, error
		),
		synthesisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "synthesis_duration_seconds",
				Help:      "Time spent waiting on the synthesis service",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
			},
			[]string{"operation"},
		),
		synthesisInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "synthesis_in_flight",
				Help:      "Synthesis calls currently waiting on the service",
			},
		),
		classificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifications_total",
				Help:      "Emotion classifications by input source and label",
			},
			[]string{"source", "emotion"}, // source: image, voice
		),
		tracksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tracks_cataloged_total",
				Help:      "Track records inserted into the catalog",
			},
			[]string{"type"},
		),
		catalogErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_errors_total",
				Help:      "Failed catalog operations",
			},
			[]string{"operation"},
		),
	}

	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.synthesisTotal.Describe(ch)
	m.synthesisDuration.Describe(ch)
	m.synthesisInFlight.Describe(ch)
	m.classificationsTotal.Describe(ch)
	m.tracksTotal.Describe(ch)
	m.catalogErrorsTotal.Describe(ch)
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.synthesisTotal.Collect(ch)
	m.synthesisDuration.Collect(ch)
	m.synthesisInFlight.Collect(ch)
	m.classificationsTotal.Collect(ch)
	m.tracksTotal.Collect(ch)
	m.catalogErrorsTotal.Collect(ch)
}

// SynthesisStarted marks a call in flight. Call the returned func with
// the outcome once the call returns.
func (m *Metrics) SynthesisStarted(operation string) func(outcome string) {
	if m == nil {
		return func(string) {}
	}

	start := time.Now()
	m.synthesisInFlight.Inc()

	return func(outcome string) {
		m.synthesisInFlight.Dec()
		m.synthesisDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		m.synthesisTotal.WithLabelValues(operation, outcome).Inc()
	}
}

func (m *Metrics) RecordClassification(source, emotion string) {
	if m == nil {
		return
	}
	m.classificationsTotal.WithLabelValues(source, emotion).Inc()
}

func (m *Metrics) RecordTrack(trackType string) {
	if m == nil {
		return
	}
	m.tracksTotal.WithLabelValues(trackType).Inc()
}

func (m *Metrics) RecordCatalogError(operation string) {
	if m == nil {
		return
	}
	m.catalogErrorsTotal.WithLabelValues(operation).Inc()
}
