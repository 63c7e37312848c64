package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons, one per failed ballot check.
const (
	ReasonElectionNotFound = "election_not_found"
	ReasonNotActive        = "not_active"
	ReasonOutsideWindow    = "outside_window"
	ReasonInvalidPosition  = "invalid_position"
	ReasonInvalidCandidate = "invalid_candidate"
	ReasonDuplicate        = "duplicate"
	ReasonError            = "error"
)

type Metrics struct {
	VotesCast        prometheus.Counter
	VotesRejected    *prometheus.CounterVec
	CastVoteDuration prometheus.Histogram
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		VotesCast: f.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_votes_cast_total",
			Help: "Total number of votes accepted",
		}),
		VotesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campusvote_votes_rejected_total",
			Help: "Total number of votes rejected, by reason",
		}, []string{"reason"}),
		CastVoteDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "campusvote_vote_cast_duration_seconds",
			Help:    "Time taken to validate and store a vote",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementVotesCast() {
	m.VotesCast.Inc()
}

func (m *Metrics) IncrementVotesRejected(reason string) {
	m.VotesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveCastVote(start time.Time) {
	m.CastVoteDuration.Observe(time.Since(start).Seconds())
}
