package analytics

import (
	"context"
	"errors"
	"log/slog"

	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/sentinel"
	"quorum/pkg/requestcontext"

	analyticsmetrics "quorum/internal/analytics/metrics"
)

// BalanceSource exposes the current treasury balance for runway math.
type BalanceSource interface {
	Balance() int64
}

// Service is the analytics engine. Record* methods are best-effort and never
// fail the caller's operation; the memory store makes them infallible today
// but the contract stays void either way.
type Service struct {
	store   *InMemory
	balance BalanceSource
	logger  *slog.Logger
	metrics *analyticsmetrics.Metrics
}

func NewService(store *InMemory, balance BalanceSource, logger *slog.Logger, metrics *analyticsmetrics.Metrics) *Service {
	return &Service{store: store, balance: balance, logger: logger, metrics: metrics}
}

// RecordTransaction folds one executed transfer into the current period
// bucket. The average is integer division, consistent with every other
// amount in the engine.
func (s *Service) RecordTransaction(ctx context.Context, amount int64, inflow bool) {
	bucket := bucketOf(requestcontext.Tick(ctx))
	s.store.UpsertPeriod(ctx, bucket, func(p *PeriodStats) {
		if inflow {
			p.TotalInflows += amount
		} else {
			p.TotalOutflows += amount
		}
		p.TxCount++
		p.AvgTxSize = (p.TotalInflows + p.TotalOutflows) / p.TxCount
	})
	s.metrics.TransactionsRecorded.Inc()
}

// RecordMemberActivity folds one event into the member's lifetime counters.
func (s *Service) RecordMemberActivity(ctx context.Context, member id.Principal, update ActivityUpdate) {
	now := requestcontext.Tick(ctx)
	s.store.UpsertMember(ctx, member, func(m *MemberStats) {
		if update.ProposalCreated {
			m.ProposalsCreated++
		}
		if update.VoteCast {
			m.VotesCast++
		}
		if update.Executed {
			m.TransactionsExecuted++
		}
		m.ProposedAmount += update.ProposedAmount
		m.ExecutedAmount += update.ExecutedAmount
		if now > m.LastActive {
			m.LastActive = now
		}
	})
}

// PeriodStats returns the aggregate for one bucket index.
func (s *Service) PeriodStats(ctx context.Context, bucket int64) (*PeriodStats, error) {
	stats, err := s.store.FindPeriod(ctx, bucket)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no activity recorded for period")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "period lookup failed")
	}
	return stats, nil
}

// CurrentPeriod returns the aggregate for the bucket containing the request
// tick.
func (s *Service) CurrentPeriod(ctx context.Context) (*PeriodStats, error) {
	return s.PeriodStats(ctx, bucketOf(requestcontext.Tick(ctx)))
}

// BurnRate averages outflows over the trailing BurnRateWindow buckets,
// current bucket included. Integer division; a quiet treasury reports zero.
func (s *Service) BurnRate(ctx context.Context) int64 {
	current := bucketOf(requestcontext.Tick(ctx))
	from := current - (BurnRateWindow - 1)
	if from < 0 {
		from = 0
	}
	return s.store.OutflowsBetween(ctx, from, current) / BurnRateWindow
}

// HealthScore bands the treasury's runway in periods of spend. A zero burn
// rate means no measurable spend, which scores as fully healthy.
func (s *Service) HealthScore(ctx context.Context) int64 {
	burn := s.BurnRate(ctx)
	if burn == 0 {
		return 100
	}
	runway := s.balance.Balance() / burn
	switch {
	case runway > 12:
		return 100
	case runway > 6:
		return 75
	case runway > 3:
		return 50
	default:
		return 25
	}
}

// ActivitySummary returns a member's lifetime counters with derived fields.
// Members with no recorded activity surface as not found.
func (s *Service) ActivitySummary(ctx context.Context, member id.Principal) (*Summary, error) {
	stats, err := s.store.FindMember(ctx, member)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no activity recorded for member")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "member activity lookup failed")
	}

	summary := &Summary{MemberStats: *stats}
	if stats.TransactionsExecuted > 0 {
		summary.AvgExecutedAmount = stats.ExecutedAmount / stats.TransactionsExecuted
	}
	s.metrics.SummaryRequests.Inc()
	return summary, nil
}
