package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SchedulesCreated prometheus.Counter
	PayoutsExecuted  prometheus.Counter
	PayoutAmount     prometheus.Counter
	PayoutsRejected  *prometheus.CounterVec
	SchedulesFrozen  prometheus.Counter
	RunnerSweeps     prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SchedulesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_recurring_schedules_created_total",
			Help: "Payment schedules created.",
		}),
		PayoutsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_recurring_payouts_executed_total",
			Help: "Recurring payouts settled.",
		}),
		PayoutAmount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_recurring_payout_amount_total",
			Help: "Total funds moved by recurring payouts.",
		}),
		PayoutsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quorum_recurring_payouts_rejected_total",
			Help: "Payout attempts rejected, by error code.",
		}, []string{"code"}),
		SchedulesFrozen: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_recurring_schedules_frozen_total",
			Help: "Schedules deactivated by freeze-all sweeps.",
		}),
		RunnerSweeps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_recurring_runner_sweeps_total",
			Help: "Background due-payment sweeps.",
		}),
	}
}
