package analytics

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/requestcontext"

	analyticsmetrics "quorum/internal/analytics/metrics"
)

// Shared across tests: promauto registers on the default registry once.
var testMetrics = analyticsmetrics.New()

type fakeBalance struct {
	balance int64
}

func (b *fakeBalance) Balance() int64 { return b.balance }

type AnalyticsSuite struct {
	suite.Suite
	store   *InMemory
	balance *fakeBalance
	svc     *Service
}

func TestAnalyticsSuite(t *testing.T) {
	suite.Run(t, new(AnalyticsSuite))
}

func (s *AnalyticsSuite) SetupTest() {
	s.store = NewInMemory()
	s.balance = &fakeBalance{balance: 1_000_000}
	s.svc = NewService(s.store, s.balance, slog.New(slog.NewTextHandler(io.Discard, nil)), testMetrics)
}

func (s *AnalyticsSuite) at(tick id.Tick) context.Context {
	return requestcontext.WithTick(context.Background(), tick)
}

func (s *AnalyticsSuite) TestRecordTransaction() {
	s.Run("aggregates within a bucket", func() {
		s.svc.RecordTransaction(s.at(10), 1000, true)
		s.svc.RecordTransaction(s.at(20), 400, false)
		s.svc.RecordTransaction(s.at(30), 200, false)

		stats, err := s.svc.PeriodStats(s.at(30), 0)
		s.Require().NoError(err)
		s.Equal(int64(1000), stats.TotalInflows)
		s.Equal(int64(600), stats.TotalOutflows)
		s.Equal(int64(3), stats.TxCount)
		s.Equal(int64(533), stats.AvgTxSize)
	})

	s.Run("ticks in different periods land in different buckets", func() {
		s.svc.RecordTransaction(s.at(PeriodLength+5), 900, false)

		stats, err := s.svc.PeriodStats(s.at(0), 1)
		s.Require().NoError(err)
		s.Equal(int64(900), stats.TotalOutflows)
		s.Equal(PeriodLength, stats.StartTick)
		s.Equal(PeriodLength*2-1, stats.EndTick)
	})

	s.Run("empty bucket is not found", func() {
		_, err := s.svc.PeriodStats(s.at(0), 99)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *AnalyticsSuite) TestBurnRate() {
	s.Run("quiet treasury burns nothing", func() {
		s.Equal(int64(0), s.svc.BurnRate(s.at(PeriodLength*40)))
	})

	s.Run("averages outflows over the trailing window", func() {
		// 3000 of outflow spread over the window.
		s.svc.RecordTransaction(s.at(PeriodLength*38), 1000, false)
		s.svc.RecordTransaction(s.at(PeriodLength*39), 2000, false)

		s.Equal(int64(3000/BurnRateWindow), s.svc.BurnRate(s.at(PeriodLength*40)))
	})

	s.Run("outflows outside the window are ignored", func() {
		s.svc.RecordTransaction(s.at(0), 500_000, false)
		s.Equal(int64(3000/BurnRateWindow), s.svc.BurnRate(s.at(PeriodLength*40)))
	})

	s.Run("inflows never count toward burn", func() {
		s.svc.RecordTransaction(s.at(PeriodLength*40), 500_000, true)
		s.Equal(int64(3000/BurnRateWindow), s.svc.BurnRate(s.at(PeriodLength*40)))
	})
}

func (s *AnalyticsSuite) TestHealthScore() {
	now := s.at(PeriodLength * 40)

	s.Run("no burn scores full health", func() {
		s.Equal(int64(100), s.svc.HealthScore(now))
	})

	s.Run("bands follow runway in periods", func() {
		// Burn rate of 3000/window per period.
		s.svc.RecordTransaction(s.at(PeriodLength*39), 3000, false)
		burn := int64(3000 / BurnRateWindow)

		s.balance.balance = burn * 13
		s.Equal(int64(100), s.svc.HealthScore(now))

		s.balance.balance = burn * 12
		s.Equal(int64(75), s.svc.HealthScore(now))

		s.balance.balance = burn * 5
		s.Equal(int64(50), s.svc.HealthScore(now))

		s.balance.balance = burn * 2
		s.Equal(int64(25), s.svc.HealthScore(now))
	})
}

func (s *AnalyticsSuite) TestActivitySummary() {
	s.Run("unknown member is not found", func() {
		_, err := s.svc.ActivitySummary(s.at(10), "ghost")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("accumulates counters and derives averages", func() {
		s.svc.RecordMemberActivity(s.at(10), "alice", ActivityUpdate{ProposalCreated: true, ProposedAmount: 1000})
		s.svc.RecordMemberActivity(s.at(20), "alice", ActivityUpdate{VoteCast: true})
		s.svc.RecordMemberActivity(s.at(30), "alice", ActivityUpdate{Executed: true, ExecutedAmount: 700})
		s.svc.RecordMemberActivity(s.at(40), "alice", ActivityUpdate{Executed: true, ExecutedAmount: 300})

		summary, err := s.svc.ActivitySummary(s.at(50), "alice")
		s.Require().NoError(err)
		s.Equal(int64(1), summary.ProposalsCreated)
		s.Equal(int64(1), summary.VotesCast)
		s.Equal(int64(2), summary.TransactionsExecuted)
		s.Equal(int64(1000), summary.ProposedAmount)
		s.Equal(int64(500), summary.AvgExecutedAmount)
		s.Equal(id.Tick(40), summary.LastActive)
	})
}
