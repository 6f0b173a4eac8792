package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the member registry.
type Metrics struct {
	MembersAdded   prometheus.Counter
	MembersRemoved prometheus.Counter
	RoleUpdates    prometheus.Counter
}

// New creates a new Metrics instance with all member module metrics registered.
func New() *Metrics {
	return &Metrics{
		MembersAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_members_added_total",
			Help: "Total number of members added to the registry",
		}),
		MembersRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_members_removed_total",
			Help: "Total number of members deactivated",
		}),
		RoleUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_member_role_updates_total",
			Help: "Total number of member role changes",
		}),
	}
}
