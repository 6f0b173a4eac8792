package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"quorum/internal/analytics"
	"quorum/internal/audit"
	"quorum/internal/history"
	"quorum/internal/proposal/models"
	proposalmetrics "quorum/internal/proposal/metrics"
	"quorum/internal/proposal/store"
	"quorum/internal/spendlimit"
	"quorum/internal/treasury"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/tx"
	"quorum/pkg/requestcontext"
)

// Shared across tests: promauto registers on the default registry once.
var testMetrics = proposalmetrics.New()

type fakeDirectory struct {
	authorized map[id.Principal]bool
	admins     map[id.Principal]bool
	touched    []id.Principal
}

func (d *fakeDirectory) IsAuthorized(_ context.Context, p id.Principal) (bool, error) {
	return d.authorized[p], nil
}

func (d *fakeDirectory) HasRole(_ context.Context, p id.Principal, role id.Role) (bool, error) {
	if role == id.RoleAdmin {
		return d.admins[p], nil
	}
	return false, nil
}

func (d *fakeDirectory) Touch(_ context.Context, p id.Principal) {
	d.touched = append(d.touched, p)
}

type fakeAnalytics struct {
	outflows int64
	inflows  int64
	activity []analytics.ActivityUpdate
}

func (a *fakeAnalytics) RecordTransaction(_ context.Context, amount int64, inflow bool) {
	if inflow {
		a.inflows += amount
	} else {
		a.outflows += amount
	}
}

func (a *fakeAnalytics) RecordMemberActivity(_ context.Context, _ id.Principal, update analytics.ActivityUpdate) {
	a.activity = append(a.activity, update)
}

type failingHistory struct{}

func (failingHistory) Append(context.Context, *history.Record) (id.TxID, error) {
	return 0, errors.New("history store down")
}

func (failingHistory) Get(context.Context, id.TxID) (*history.Record, error) {
	return nil, errors.New("history store down")
}

func (failingHistory) Count(context.Context) (uint64, error) {
	return 0, errors.New("history store down")
}

type ProposalSuite struct {
	suite.Suite
	store     *store.Memory
	members   *fakeDirectory
	limits    *spendlimit.Tracker
	state     *treasury.State
	ledger    *treasury.MemoryLedger
	histStore *history.InMemory
	analytics *fakeAnalytics
	svc       *Service
}

func TestProposalSuite(t *testing.T) {
	suite.Run(t, new(ProposalSuite))
}

func (s *ProposalSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.store = store.NewMemory()
	s.members = &fakeDirectory{
		authorized: map[id.Principal]bool{"alice": true, "bob": true, "carol": true},
		admins:     map[id.Principal]bool{"alice": true},
	}
	s.state = treasury.NewState(1)
	s.limits = spendlimit.NewTracker(spendlimit.NewInMemory(), s.members, s.state, logger)
	s.ledger = treasury.NewMemoryLedger()
	s.ledger.Seed(treasury.VaultAccount, 10_000)
	s.state.Credit(10_000)
	s.histStore = history.NewInMemory()
	s.analytics = &fakeAnalytics{}

	s.svc = NewService(
		s.store,
		s.members,
		s.limits,
		s.state,
		s.ledger,
		s.histStore,
		s.analytics,
		audit.NewPublisher(64, logger),
		tx.NewSerialized(),
		logger,
		testMetrics,
		false,
	)
}

func (s *ProposalSuite) as(caller id.Principal, tick id.Tick) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), caller)
	return requestcontext.WithTick(ctx, tick)
}

func (s *ProposalSuite) create(caller id.Principal, tick id.Tick, amount int64, expiryDelta id.Tick) *models.Proposal {
	proposal, err := s.svc.Create(s.as(caller, tick), "payee", amount, "ops budget", expiryDelta)
	s.Require().NoError(err)
	return proposal
}

func (s *ProposalSuite) TestCreate() {
	s.Run("snapshots the threshold at creation", func() {
		proposal := s.create("alice", 10, 1000, 100)
		s.Equal(models.KindStandard, proposal.Kind)
		s.Equal(1, proposal.ThresholdRequired)
		s.Equal(id.Tick(110), proposal.ExpiresAt)
		s.Equal(0, proposal.VotesFor)
	})

	s.Run("later threshold changes do not move the bar", func() {
		proposal := s.create("alice", 10, 1000, 100)
		s.Require().NoError(s.state.SetThreshold(5))

		got, err := s.svc.Get(s.as("alice", 11), proposal.ID)
		s.Require().NoError(err)
		s.Equal(1, got.ThresholdRequired)

		s.Require().NoError(s.state.SetThreshold(1))
	})

	s.Run("unauthorized caller rejected", func() {
		_, err := s.svc.Create(s.as("stranger", 10), "payee", 1000, "", 100)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("paused vault rejects creation", func() {
		s.state.SetPaused(true)
		defer s.state.SetPaused(false)
		_, err := s.svc.Create(s.as("alice", 10), "payee", 1000, "", 100)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("non-positive amount rejected", func() {
		_, err := s.svc.Create(s.as("alice", 10), "payee", 0, "", 100)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})
}

func (s *ProposalSuite) TestVote() {
	s.Run("tallies approvals and rejections separately", func() {
		proposal := s.create("alice", 10, 1000, 100)

		got, err := s.svc.Vote(s.as("bob", 20), proposal.ID, true)
		s.Require().NoError(err)
		s.Equal(1, got.VotesFor)

		got, err = s.svc.Vote(s.as("carol", 21), proposal.ID, false)
		s.Require().NoError(err)
		s.Equal(1, got.VotesFor)
		s.Equal(1, got.VotesAgainst)
	})

	s.Run("second ballot rejected regardless of direction", func() {
		proposal := s.create("alice", 10, 1000, 100)
		_, err := s.svc.Vote(s.as("bob", 20), proposal.ID, true)
		s.Require().NoError(err)

		_, err = s.svc.Vote(s.as("bob", 21), proposal.ID, false)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyVoted))

		got, err := s.svc.Get(s.as("bob", 22), proposal.ID)
		s.Require().NoError(err)
		s.Equal(1, got.VotesFor)
		s.Equal(0, got.VotesAgainst)
	})

	s.Run("vote at expiry tick is too late", func() {
		proposal := s.create("alice", 10, 1000, 100)
		_, err := s.svc.Vote(s.as("bob", proposal.ExpiresAt), proposal.ID, true)
		s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	})

	s.Run("unknown proposal is not found", func() {
		_, err := s.svc.Vote(s.as("bob", 20), 999, true)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ProposalSuite) TestExecute() {
	s.Run("end to end with threshold one", func() {
		proposal := s.create("alice", 10, 1000, 100)
		_, err := s.svc.Vote(s.as("bob", 20), proposal.ID, true)
		s.Require().NoError(err)

		txID, err := s.svc.Execute(s.as("bob", 30), proposal.ID)
		s.Require().NoError(err)
		s.Equal(int64(9_000), s.state.Balance())
		s.Equal(int64(1000), s.ledger.BalanceOf("payee"))
		s.Equal(int64(1000), s.analytics.outflows)

		record, err := s.histStore.Get(s.as("bob", 31), txID)
		s.Require().NoError(err)
		s.Equal(history.KindProposal, record.Kind)
		s.Equal(uint64(proposal.ID), record.RefID)
		s.Equal(id.Principal("bob"), record.Executor)
	})

	s.Run("double execute fails and debits once", func() {
		proposal := s.create("alice", 10, 1000, 100)
		_, err := s.svc.Vote(s.as("bob", 20), proposal.ID, true)
		s.Require().NoError(err)

		_, err = s.svc.Execute(s.as("bob", 30), proposal.ID)
		s.Require().NoError(err)
		balance := s.state.Balance()

		_, err = s.svc.Execute(s.as("carol", 31), proposal.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeExecutionFailed))
		s.Equal(balance, s.state.Balance())
	})

	s.Run("below threshold rejected", func() {
		s.Require().NoError(s.state.SetThreshold(2))
		defer func() { s.Require().NoError(s.state.SetThreshold(1)) }()

		proposal := s.create("alice", 10, 1000, 100)
		_, err := s.svc.Vote(s.as("bob", 20), proposal.ID, true)
		s.Require().NoError(err)

		_, err = s.svc.Execute(s.as("bob", 30), proposal.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientVotes))
	})

	s.Run("expired proposal rejected", func() {
		proposal := s.create("alice", 10, 1000, 100)
		_, err := s.svc.Vote(s.as("bob", 20), proposal.ID, true)
		s.Require().NoError(err)

		_, err = s.svc.Execute(s.as("bob", proposal.ExpiresAt), proposal.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	})

	s.Run("limit breach aborts with zero mutation", func() {
		_, err := s.limits.SetLimits(s.as("alice", 10), "bob", 500, 5000, 100000)
		s.Require().NoError(err)

		proposal := s.create("alice", 10, 1000, 100)
		_, err = s.svc.Vote(s.as("bob", 20), proposal.ID, true)
		s.Require().NoError(err)

		balance := s.state.Balance()
		payee := s.ledger.BalanceOf("payee")
		outflows := s.analytics.outflows
		_, err = s.svc.Execute(s.as("bob", 30), proposal.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeLimitExceeded))

		s.Equal(balance, s.state.Balance())
		s.Equal(payee, s.ledger.BalanceOf("payee"))
		s.Equal(outflows, s.analytics.outflows)

		got, getErr := s.svc.Get(s.as("alice", 31), proposal.ID)
		s.Require().NoError(getErr)
		s.False(got.Executed)

		// A different executor with headroom can still settle it.
		_, err = s.svc.Execute(s.as("carol", 32), proposal.ID)
		s.NoError(err)
	})

	s.Run("history outage does not fail a settled execution", func() {
		proposal := s.create("alice", 10, 1000, 100)
		_, err := s.svc.Vote(s.as("bob", 20), proposal.ID, true)
		s.Require().NoError(err)

		s.svc.histStore = failingHistory{}
		defer func() { s.svc.histStore = s.histStore }()

		balance := s.state.Balance()
		txID, err := s.svc.Execute(s.as("bob", 30), proposal.ID)
		s.Require().NoError(err)
		s.Zero(txID)
		s.Equal(balance-1000, s.state.Balance())

		got, err := s.svc.Get(s.as("bob", 31), proposal.ID)
		s.Require().NoError(err)
		s.True(got.Executed)
	})

	s.Run("execution consumes the executor's allowance", func() {
		_, err := s.limits.SetLimits(s.as("alice", 10), "carol", 3000, 30000, 100000)
		s.Require().NoError(err)

		proposal := s.create("alice", 10, 2000, 100)
		_, err = s.svc.Vote(s.as("bob", 20), proposal.ID, true)
		s.Require().NoError(err)
		_, err = s.svc.Execute(s.as("carol", 30), proposal.ID)
		s.Require().NoError(err)

		remaining, err := s.limits.RemainingDaily(s.as("carol", 31), "carol")
		s.Require().NoError(err)
		s.Equal(int64(1000), remaining)
	})
}

func (s *ProposalSuite) TestEmergencyWithdrawal() {
	s.Run("raises the threshold snapshot and seeds approval", func() {
		proposal, err := s.svc.EmergencyWithdrawal(s.as("alice", 10), "payee", 5000, "key compromise")
		s.Require().NoError(err)
		s.Equal(models.KindEmergency, proposal.Kind)
		s.Equal(1+EmergencyThresholdBump, proposal.ThresholdRequired)
		s.Equal(id.Tick(10)+EmergencyExpiryDelta, proposal.ExpiresAt)
		s.Equal(1, proposal.VotesFor)
	})

	s.Run("counter-only seeding leaves the proposer free to vote", func() {
		proposal, err := s.svc.EmergencyWithdrawal(s.as("alice", 10), "payee", 5000, "key compromise")
		s.Require().NoError(err)

		got, err := s.svc.Vote(s.as("alice", 20), proposal.ID, true)
		s.Require().NoError(err)
		s.Equal(2, got.VotesFor)
	})

	s.Run("non-admin rejected", func() {
		_, err := s.svc.EmergencyWithdrawal(s.as("bob", 10), "payee", 5000, "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ProposalSuite) TestEmergencySeededBallot() {
	// Rebuild the service with ballot seeding enabled.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(
		s.store, s.members, s.limits, s.state, s.ledger, s.histStore,
		s.analytics, audit.NewPublisher(64, logger), tx.NewSerialized(),
		logger, testMetrics, true,
	)

	proposal, err := svc.EmergencyWithdrawal(s.as("alice", 10), "payee", 5000, "key compromise")
	s.Require().NoError(err)
	s.Equal(1, proposal.VotesFor)

	vote, err := svc.GetVote(s.as("alice", 11), proposal.ID, "alice")
	s.Require().NoError(err)
	s.True(vote.Approve)

	_, err = svc.Vote(s.as("alice", 20), proposal.ID, true)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyVoted))
}

func (s *ProposalSuite) TestIsExecutable() {
	proposal := s.create("alice", 10, 1000, 100)

	executable, reason, err := s.svc.IsExecutable(s.as("bob", 20), proposal.ID)
	s.Require().NoError(err)
	s.False(executable)
	s.Equal("approval threshold not met", reason)

	_, err = s.svc.Vote(s.as("bob", 20), proposal.ID, true)
	s.Require().NoError(err)

	executable, reason, err = s.svc.IsExecutable(s.as("bob", 21), proposal.ID)
	s.Require().NoError(err)
	s.True(executable)
	s.Empty(reason)

	// The predicate must not have mutated anything.
	got, err := s.svc.Get(s.as("bob", 22), proposal.ID)
	s.Require().NoError(err)
	s.False(got.Executed)
	s.Equal(int64(10_000), s.state.Balance())
}
