package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the Resilient Data Gateway.
type Metrics struct {
	Requests    *prometheus.CounterVec
	Latency     *prometheus.HistogramVec
	BreakerOpen prometheus.Gauge
	CacheHits   *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers against reg; tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insureadmin_gateway_requests_total",
			Help: "Data gateway calls by operation and result kind",
		}, []string{"op", "result"}),
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "insureadmin_gateway_request_duration_seconds",
			Help:    "Data gateway call latency by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		BreakerOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "insureadmin_gateway_breaker_open",
			Help: "1 while the data gateway circuit breaker is open",
		}),
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insureadmin_gateway_cache_total",
			Help: "Read-through cache lookups by outcome (hit, miss)",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveRequest(op, result string, elapsed time.Duration) {
	m.Requests.WithLabelValues(op, result).Inc()
	m.Latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}

func (m *Metrics) IncrementCache(outcome string) {
	m.CacheHits.WithLabelValues(outcome).Inc()
}
