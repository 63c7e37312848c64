package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ElectionsCreated prometheus.Counter
	Nominations      prometheus.Counter
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ElectionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_elections_created_total",
			Help: "Total number of elections created",
		}),
		Nominations: f.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_nominations_total",
			Help: "Total number of nominations submitted",
		}),
	}
}

func (m *Metrics) IncrementElectionsCreated() {
	m.ElectionsCreated.Inc()
}

func (m *Metrics) IncrementNominations() {
	m.Nominations.Inc()
}
