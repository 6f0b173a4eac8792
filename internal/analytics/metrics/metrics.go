package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TransactionsRecorded prometheus.Counter
	SummaryRequests      prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		TransactionsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_analytics_transactions_recorded_total",
			Help: "Executed transfers folded into period aggregates.",
		}),
		SummaryRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_analytics_summary_requests_total",
			Help: "Member activity summary lookups.",
		}),
	}
}
