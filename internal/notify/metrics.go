package notify

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts deliveries per channel and outcome.
type Metrics struct {
	deliveries *prometheus.CounterVec
	attempts   *prometheus.HistogramVec
}

// NewMetrics registers the notification collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acceptance_notifications_total",
				Help: "Notification deliveries by channel and outcome.",
			},
			[]string{"channel", "outcome"},
		),
		attempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "acceptance_notification_attempts",
				Help:    "Attempts needed per notification delivery.",
				Buckets: []float64{1, 2, 3, 5, 8},
			},
			[]string{"channel"},
		),
	}
	for _, c := range []prometheus.Collector{m.deliveries, m.attempts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(r Result) {
	if m == nil {
		return
	}
	outcome := "delivered"
	if !r.Delivered {
		outcome = "failed"
	}
	m.deliveries.WithLabelValues(r.Channel, outcome).Inc()
	m.attempts.WithLabelValues(r.Channel).Observe(float64(r.Attempts))
}
