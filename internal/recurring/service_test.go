package recurring

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"quorum/internal/audit"
	"quorum/internal/history"
	recurringmetrics "quorum/internal/recurring/metrics"
	"quorum/internal/treasury"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/tx"
	"quorum/pkg/requestcontext"
)

// Shared across tests: promauto registers on the default registry once.
var testMetrics = recurringmetrics.New()

type fakeDirectory struct {
	authorized map[id.Principal]bool
	admins     map[id.Principal]bool
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

func (d *fakeDirectory) Touch(_ context.Context, _ id.Principal) {}

type fakeAnalytics struct {
	outflows int64
}

func (a *fakeAnalytics) RecordTransaction(_ context.Context, amount int64, inflow bool) {
	if !inflow {
		a.outflows += amount
	}
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

type RecurringSuite struct {
	suite.Suite
	store     *InMemory
	state     *treasury.State
	ledger    *treasury.MemoryLedger
	analytics *fakeAnalytics
	svc       *Service
}

func TestRecurringSuite(t *testing.T) {
	suite.Run(t, new(RecurringSuite))
}

func (s *RecurringSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.store = NewInMemory()
	s.state = treasury.NewState(1)
	s.state.Credit(10_000)
	s.ledger = treasury.NewMemoryLedger()
	s.ledger.Seed(treasury.VaultAccount, 10_000)
	s.analytics = &fakeAnalytics{}

	members := &fakeDirectory{
		authorized: map[id.Principal]bool{"alice": true, "bob": true},
		admins:     map[id.Principal]bool{"alice": true},
	}
	s.svc = NewService(
		s.store,
		members,
		s.state,
		s.ledger,
		history.NewInMemory(),
		s.analytics,
		audit.NewPublisher(64, logger),
		tx.NewSerialized(),
		logger,
		testMetrics,
	)
}

func (s *RecurringSuite) as(caller id.Principal, tick id.Tick) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), caller)
	return requestcontext.WithTick(ctx, tick)
}

func (s *RecurringSuite) TestCreate() {
	s.Run("first payout comes due one frequency out", func() {
		payment, err := s.svc.Create(s.as("alice", 50), "payee", 100, "server hosting", 100, 3)
		s.Require().NoError(err)
		s.Equal(id.Tick(150), payment.NextDue)
		s.Equal("server hosting", payment.Description)
		s.True(payment.Active)
	})

	s.Run("non-admin rejected", func() {
		_, err := s.svc.Create(s.as("bob", 50), "payee", 100, "", 100, 3)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("paused vault rejected", func() {
		s.state.SetPaused(true)
		defer s.state.SetPaused(false)
		_, err := s.svc.Create(s.as("alice", 50), "payee", 100, "", 100, 3)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("non-positive frequency rejected", func() {
		_, err := s.svc.Create(s.as("alice", 50), "payee", 100, "", 0, 3)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	s.Run("non-positive total payments rejected", func() {
		_, err := s.svc.Create(s.as("alice", 50), "payee", 100, "", 100, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))

		_, err = s.svc.Create(s.as("alice", 50), "payee", 100, "", 100, -1)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})
}

func (s *RecurringSuite) TestExecuteDue() {
	s.Run("schedule deactivates when payments made reaches the target", func() {
		payment, err := s.svc.Create(s.as("alice", 0), "payee", 100, "", 100, 3)
		s.Require().NoError(err)

		for i := 1; i <= 3; i++ {
			_, err := s.svc.ExecuteDue(s.as("bob", id.Tick(i*100)), payment.ID)
			s.Require().NoError(err, "payout %d", i)
		}
		s.Equal(int64(300), s.ledger.BalanceOf("payee"))
		s.Equal(int64(300), s.analytics.outflows)

		got, err := s.svc.Get(s.as("bob", 301), payment.ID)
		s.Require().NoError(err)
		s.Equal(int64(3), got.ExecutionCount)
		s.False(got.Active)

		_, err = s.svc.ExecuteDue(s.as("bob", 400), payment.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeExecutionFailed))
		s.Equal(int64(300), s.ledger.BalanceOf("payee"))
	})

	s.Run("settlement is open to any caller", func() {
		payment, err := s.svc.Create(s.as("alice", 0), "payee5", 100, "", 100, 2)
		s.Require().NoError(err)

		_, err = s.svc.ExecuteDue(s.as("outsider", 100), payment.ID)
		s.Require().NoError(err)
		s.Equal(int64(100), s.ledger.BalanceOf("payee5"))
	})

	s.Run("anonymous caller rejected", func() {
		payment, err := s.svc.Create(s.as("alice", 0), "payee6", 100, "", 100, 2)
		s.Require().NoError(err)

		ctx := requestcontext.WithTick(context.Background(), 100)
		_, err = s.svc.ExecuteDue(ctx, payment.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("not yet due rejected without mutation", func() {
		payment, err := s.svc.Create(s.as("alice", 0), "payee2", 100, "", 100, 10)
		s.Require().NoError(err)

		_, err = s.svc.ExecuteDue(s.as("bob", 99), payment.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeExecutionFailed))

		got, err := s.svc.Get(s.as("bob", 99), payment.ID)
		s.Require().NoError(err)
		s.Equal(int64(0), got.ExecutionCount)
	})

	s.Run("lagging schedule catches up one payout per call", func() {
		payment, err := s.svc.Create(s.as("alice", 0), "payee3", 100, "", 100, 10)
		s.Require().NoError(err)

		// Three periods elapsed; each call settles one owed payout.
		_, err = s.svc.ExecuteDue(s.as("bob", 350), payment.ID)
		s.Require().NoError(err)
		_, err = s.svc.ExecuteDue(s.as("bob", 350), payment.ID)
		s.Require().NoError(err)

		got, err := s.svc.Get(s.as("bob", 350), payment.ID)
		s.Require().NoError(err)
		s.Equal(id.Tick(300), got.NextDue)
	})

	s.Run("insufficient balance rejected", func() {
		payment, err := s.svc.Create(s.as("alice", 0), "payee4", 50_000, "", 100, 10)
		s.Require().NoError(err)

		_, err = s.svc.ExecuteDue(s.as("bob", 100), payment.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	s.Run("unknown schedule is not found", func() {
		_, err := s.svc.ExecuteDue(s.as("bob", 100), 999)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("history outage does not fail a settled payout", func() {
		payment, err := s.svc.Create(s.as("alice", 0), "payee7", 100, "", 100, 2)
		s.Require().NoError(err)

		s.svc.histStore = failingHistory{}
		defer func() { s.svc.histStore = history.NewInMemory() }()

		txID, err := s.svc.ExecuteDue(s.as("bob", 100), payment.ID)
		s.Require().NoError(err)
		s.Zero(txID)
		s.Equal(int64(100), s.ledger.BalanceOf("payee7"))

		got, err := s.svc.Get(s.as("bob", 101), payment.ID)
		s.Require().NoError(err)
		s.Equal(int64(1), got.ExecutionCount)
	})
}

func (s *RecurringSuite) TestCancel() {
	s.Run("creator can cancel", func() {
		payment, err := s.svc.Create(s.as("alice", 0), "payee", 100, "", 100, 10)
		s.Require().NoError(err)

		cancelled, err := s.svc.Cancel(s.as("alice", 10), payment.ID)
		s.Require().NoError(err)
		s.False(cancelled.Active)

		_, err = s.svc.ExecuteDue(s.as("bob", 100), payment.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeExecutionFailed))
	})

	s.Run("non-creator non-admin rejected", func() {
		payment, err := s.svc.Create(s.as("alice", 0), "payee", 100, "", 100, 10)
		s.Require().NoError(err)

		_, err = s.svc.Cancel(s.as("bob", 10), payment.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("double cancel conflicts", func() {
		payment, err := s.svc.Create(s.as("alice", 0), "payee", 100, "", 100, 10)
		s.Require().NoError(err)

		_, err = s.svc.Cancel(s.as("alice", 10), payment.ID)
		s.Require().NoError(err)
		_, err = s.svc.Cancel(s.as("alice", 11), payment.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *RecurringSuite) TestExecuteBatch() {
	first, err := s.svc.Create(s.as("alice", 0), "payee", 100, "", 100, 10)
	s.Require().NoError(err)
	second, err := s.svc.Create(s.as("alice", 0), "payee", 100, "", 500, 10)
	s.Require().NoError(err)

	// first is due at 100, second not until 500.
	results := s.svc.ExecuteBatch(s.as("bob", 100), []id.PaymentID{first.ID, second.ID, 999})
	s.Require().Len(results, 3)

	s.Empty(results[0].Error)
	s.NotZero(results[0].TxID)
	s.Equal(string(dErrors.CodeExecutionFailed), results[1].Code)
	s.Equal(string(dErrors.CodeNotFound), results[2].Code)
}

func (s *RecurringSuite) TestExecuteAllDue() {
	first, err := s.svc.Create(s.as("alice", 0), "payee", 100, "", 100, 10)
	s.Require().NoError(err)
	_, err = s.svc.Create(s.as("alice", 0), "payee", 100, "", 500, 10)
	s.Require().NoError(err)

	results := s.svc.ExecuteAllDue(s.as(SchedulerPrincipal, 100), 0)
	s.Require().Len(results, 1)
	s.Equal(first.ID, results[0].PaymentID)
	s.Empty(results[0].Error)
}

func (s *RecurringSuite) TestFreezeAll() {
	_, err := s.svc.Create(s.as("alice", 0), "payee", 100, "", 100, 10)
	s.Require().NoError(err)
	second, err := s.svc.Create(s.as("alice", 0), "payee", 100, "", 100, 10)
	s.Require().NoError(err)
	_, err = s.svc.Cancel(s.as("alice", 5), second.ID)
	s.Require().NoError(err)

	// An exhausted schedule is already inactive and must not be counted.
	third, err := s.svc.Create(s.as("alice", 0), "payee", 100, "", 5, 1)
	s.Require().NoError(err)
	_, err = s.svc.ExecuteDue(s.as("bob", 5), third.ID)
	s.Require().NoError(err)

	s.Run("non-admin rejected", func() {
		_, err := s.svc.FreezeAll(s.as("bob", 10))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("freezes only active schedules", func() {
		frozen, err := s.svc.FreezeAll(s.as("alice", 10))
		s.Require().NoError(err)
		s.Equal(1, frozen)

		payments, err := s.svc.List(s.as("alice", 11))
		s.Require().NoError(err)
		for _, payment := range payments {
			s.False(payment.Active)
		}
	})
}
