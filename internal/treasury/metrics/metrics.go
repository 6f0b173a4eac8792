package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the treasury module.
type Metrics struct {
	DepositsTotal   prometheus.Counter
	DepositedAmount prometheus.Counter
	StatsCacheHits  prometheus.Counter
	StatsCacheMiss  prometheus.Counter
	StatsDuration   prometheus.Histogram
}

// New creates a new Metrics instance with all treasury module metrics registered.
func New() *Metrics {
	return &Metrics{
		DepositsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_deposits_total",
			Help: "Total number of deposits into the vault",
		}),
		DepositedAmount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_deposited_amount_total",
			Help: "Cumulative amount deposited into the vault",
		}),
		StatsCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_stats_cache_hits_total",
			Help: "Vault stats reads served from the cache",
		}),
		StatsCacheMiss: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_stats_cache_misses_total",
			Help: "Vault stats reads composed from stores",
		}),
		StatsDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "quorum_stats_duration_seconds",
			Help:    "Duration of vault stats reads",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveStats records the duration of a Stats read.
func (m *Metrics) ObserveStats(start time.Time) {
	m.StatsDuration.Observe(time.Since(start).Seconds())
}
