package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abhiarc/Dream-interpreter/internal/app"
)

// InterpretationMetrics records outbound model calls. It implements app.Recorder.
type InterpretationMetrics struct {
	DispatchedTotal prometheus.Counter
	CompletedTotal  *prometheus.CounterVec
	Duration        prometheus.Histogram
	InFlight        prometheus.Gauge
}

var _ app.Recorder = (*InterpretationMetrics)(nil)

// NewInterpretationMetrics creates and registers interpretation metrics on the given registry.
func NewInterpretationMetrics(reg prometheus.Registerer) *InterpretationMetrics {
	m := &InterpretationMetrics{
		DispatchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interpretations_dispatched_total",
			Help:      "Total number of outbound interpretation calls.",
		}),
		CompletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interpretations_completed_total",
			Help:      "Total number of finished interpretation calls by outcome.",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interpretation_duration_seconds",
			Help:      "Latency of outbound interpretation calls in seconds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "interpretations_in_flight",
			Help:      "Number of outbound interpretation calls currently waiting on the model.",
		}),
	}

	reg.MustRegister(m.DispatchedTotal, m.CompletedTotal, m.Duration, m.InFlight)
	return m
}

func (m *InterpretationMetrics) Dispatched() {
	m.DispatchedTotal.Inc()
	m.InFlight.Inc()
}

func (m *InterpretationMetrics) Completed(outcome app.Outcome, latency time.Duration) {
	m.InFlight.Dec()
	m.CompletedTotal.WithLabelValues(string(outcome)).Inc()
	m.Duration.Observe(latency.Seconds())
}
