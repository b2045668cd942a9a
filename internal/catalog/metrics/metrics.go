package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the policy catalog.
type Metrics struct {
	SavesTotal     *prometheus.CounterVec
	DegradedLists  prometheus.Counter
	AdvisorQueries prometheus.Counter
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SavesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insureadmin_policy_saves_total",
			Help: "Policy saves by result (persisted, local_only, invalid)",
		}, []string{"result"}),
		DegradedLists: factory.NewCounter(prometheus.CounterOpts{
			Name: "insureadmin_catalog_degraded_lists_total",
			Help: "Catalog listings served with at least one empty collection",
		}),
		AdvisorQueries: factory.NewCounter(prometheus.CounterOpts{
			Name: "insureadmin_policy_advisor_queries_total",
			Help: "Policy advisor questions asked",
		}),
	}
}

func (m *Metrics) IncrementSave(result string) {
	m.SavesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementDegradedList() {
	m.DegradedLists.Inc()
}

func (m *Metrics) IncrementAdvisorQuery() {
	m.AdvisorQueries.Inc()
}
