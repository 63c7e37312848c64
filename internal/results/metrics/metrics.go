package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ResultsComputed prometheus.Counter
	ComputeDuration prometheus.Histogram
	VotesSkipped    prometheus.Counter
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ResultsComputed: f.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_results_computed_total",
			Help: "Total number of result tabulations served",
		}),
		ComputeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "campusvote_results_compute_duration_seconds",
			Help:    "Time taken to tabulate an election",
			Buckets: prometheus.DefBuckets,
		}),
		VotesSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_results_votes_skipped_total",
			Help: "Votes ignored during tabulation because their position or candidate no longer matches",
		}),
	}
}

func (m *Metrics) IncrementResultsComputed() {
	m.ResultsComputed.Inc()
}

func (m *Metrics) AddVotesSkipped(n int) {
	m.VotesSkipped.Add(float64(n))
}

func (m *Metrics) ObserveCompute(start time.Time) {
	m.ComputeDuration.Observe(time.Since(start).Seconds())
}
