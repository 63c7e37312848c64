package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks account lifecycle counts.
type Metrics struct {
	UsersCreated prometheus.Counter
	UsersDeleted prometheus.Counter
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_users_created_total",
			Help: "Total number of user accounts created",
		}),
		UsersDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_users_deleted_total",
			Help: "Total number of user accounts deleted",
		}),
	}
}

func (m *Metrics) IncrementUsersCreated() {
	m.UsersCreated.Inc()
}

func (m *Metrics) IncrementUsersDeleted() {
	m.UsersDeleted.Inc()
}
