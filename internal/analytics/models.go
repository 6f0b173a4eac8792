// Package analytics derives period-bucketed treasury aggregates and
// per-member activity counters from execution events. It is a pure read/
// derive layer: every execution path feeds it, nothing reads back from it
// into engine decisions.
package analytics

import (
	id "quorum/pkg/domain"
)

const (
	// PeriodLength is the analytics bucket width in ticks.
	PeriodLength id.Tick = 1440

	// BurnRateWindow is how many trailing periods the burn rate averages
	// over.
	BurnRateWindow = 30
)

// PeriodStats aggregates one fixed-width time bucket. Created lazily on the
// first transaction in the bucket, updated additively, never deleted.
type PeriodStats struct {
	Period        int64   `json:"period"`
	StartTick     id.Tick `json:"start_tick"`
	EndTick       id.Tick `json:"end_tick"`
	TotalInflows  int64   `json:"total_inflows"`
	TotalOutflows int64   `json:"total_outflows"`
	TxCount       int64   `json:"tx_count"`
	AvgTxSize     int64   `json:"avg_tx_size"`
}

// MemberStats counts one member's lifetime activity. Updated additively,
// never deleted - tombstoned members keep their history.
type MemberStats struct {
	Principal            id.Principal `json:"principal"`
	ProposalsCreated     int64        `json:"proposals_created"`
	VotesCast            int64        `json:"votes_cast"`
	TransactionsExecuted int64        `json:"transactions_executed"`
	ProposedAmount       int64        `json:"proposed_amount"`
	ExecutedAmount       int64        `json:"executed_amount"`
	LastActive           id.Tick      `json:"last_active"`
}

// ActivityUpdate describes which counters a single event increments. A call
// may set any combination, including none.
type ActivityUpdate struct {
	ProposalCreated bool
	VoteCast        bool
	Executed        bool
	ProposedAmount  int64
	ExecutedAmount  int64
}

// Summary is the derived per-member activity report.
type Summary struct {
	MemberStats
	AvgExecutedAmount int64 `json:"avg_executed_amount"`
}

func bucketOf(tick id.Tick) int64 {
	return int64(tick / PeriodLength)
}
