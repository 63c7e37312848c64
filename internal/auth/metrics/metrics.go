package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	KindAdmin = "admin"
	KindUser  = "user"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

type Metrics struct {
	Logins        *prometheus.CounterVec
	TokensRevoked prometheus.Counter
	WebhookUsers  prometheus.Counter
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campusvote_logins_total",
			Help: "Login attempts by kind and result",
		}, []string{"kind", "result"}),
		TokensRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_tokens_revoked_total",
			Help: "Total number of access tokens revoked by logout",
		}),
		WebhookUsers: f.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_webhook_users_created_total",
			Help: "Total number of users created from identity provider webhooks",
		}),
	}
}

func (m *Metrics) IncrementLogin(kind, result string) {
	m.Logins.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) IncrementTokensRevoked() {
	m.TokensRevoked.Inc()
}

func (m *Metrics) IncrementWebhookUsers() {
	m.WebhookUsers.Inc()
}
