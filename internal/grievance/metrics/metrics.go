package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GrievancesSubmitted prometheus.Counter
	GrievancesClosed    *prometheus.CounterVec
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GrievancesSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_grievances_submitted_total",
			Help: "Total number of grievances submitted",
		}),
		GrievancesClosed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campusvote_grievances_closed_total",
			Help: "Total number of grievances moved to a final status, by status",
		}, []string{"status"}),
	}
}

func (m *Metrics) IncrementSubmitted() {
	m.GrievancesSubmitted.Inc()
}

func (m *Metrics) IncrementClosed(status string) {
	m.GrievancesClosed.WithLabelValues(status).Inc()
}
