package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Created         *prometheus.CounterVec
	VotesCast       prometheus.Counter
	Executed        prometheus.Counter
	ExecutedAmount  prometheus.Counter
	ExecuteDuration prometheus.Histogram
	ExecuteRejected *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quorum_proposals_created_total",
			Help: "Proposals created, by kind.",
		}, []string{"kind"}),
		VotesCast: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_proposal_votes_total",
			Help: "Ballots recorded.",
		}),
		Executed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_proposals_executed_total",
			Help: "Proposals executed successfully.",
		}),
		ExecutedAmount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_proposals_executed_amount_total",
			Help: "Total funds moved by executed proposals.",
		}),
		ExecuteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "quorum_proposal_execute_duration_seconds",
			Help:    "Execution latency including ledger transfer.",
			Buckets: prometheus.DefBuckets,
		}),
		ExecuteRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quorum_proposal_execute_rejected_total",
			Help: "Execution attempts rejected, by error code.",
		}, []string{"code"}),
	}
}

func (m *Metrics) ObserveExecute(start time.Time) {
	m.ExecuteDuration.Observe(time.Since(start).Seconds())
}
