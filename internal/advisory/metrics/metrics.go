package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the advisory gateway.
type Metrics struct {
	Calls   *prometheus.CounterVec
	Latency *prometheus.HistogramVec
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insureadmin_advisory_calls_total",
			Help: "Advisory calls by operation and outcome (ok, fallback)",
		}, []string{"op", "outcome"}),
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "insureadmin_advisory_call_duration_seconds",
			Help:    "Advisory call latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"op"}),
	}
}

func (m *Metrics) ObserveCall(op, outcome string, elapsed time.Duration) {
	m.Calls.WithLabelValues(op, outcome).Inc()
	m.Latency.WithLabelValues(op).Observe(elapsed.Seconds())
}
