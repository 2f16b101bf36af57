package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts issuance and acceptance outcomes.
type Metrics struct {
	issued   *prometheus.CounterVec
	accepted *prometheus.CounterVec
}

// NewMetrics registers the service collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		issued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acceptance_documents_issued_total",
				Help: "Documents issued for acceptance, by provider.",
			},
			[]string{"provider"},
		),
		accepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acceptance_attempts_total",
				Help: "Acceptance attempts by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
	}
	for _, c := range []prometheus.Collector{m.issued, m.accepted} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) issue(provider string) {
	if m == nil {
		return
	}
	m.issued.WithLabelValues(provider).Inc()
}

func (m *Metrics) attempt(method, outcome string) {
	if m == nil {
		return
	}
	m.accepted.WithLabelValues(method, outcome).Inc()
}
