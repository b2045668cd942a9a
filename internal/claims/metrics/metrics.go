package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for claim adjudication.
type Metrics struct {
	Decisions        *prometheus.CounterVec
	AdvisoryRequests prometheus.Counter
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insureadmin_claim_decisions_total",
			Help: "Claim decisions by outcome and result (persisted, local_only, conflict, invalid)",
		}, []string{"outcome", "result"}),
		AdvisoryRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "insureadmin_claim_advisory_requests_total",
			Help: "Claim analysis requests sent to the advisory gateway",
		}),
	}
}

func (m *Metrics) IncrementDecision(outcome, result string) {
	m.Decisions.WithLabelValues(outcome, result).Inc()
}

func (m *Metrics) IncrementAdvisory() {
	m.AdvisoryRequests.Inc()
}
