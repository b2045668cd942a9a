package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ThrottledTotal *prometheus.CounterVec
	TrackedKeys    prometheus.Gauge
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ThrottledTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insureadmin_login_throttled_total",
			Help: "Login attempts refused by the throttle, by key kind (ip, email)",
		}, []string{"key"}),
		TrackedKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "insureadmin_login_throttle_tracked_keys",
			Help: "Client addresses and emails currently holding a login bucket",
		}),
	}
}

func (m *Metrics) IncrementThrottled(kind string) {
	m.ThrottledTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetTrackedKeys(count int) {
	m.TrackedKeys.Set(float64(count))
}
