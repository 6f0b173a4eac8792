package treasury

import (
	"context"
	"log/slog"
	"time"

	"quorum/internal/audit"
	"quorum/internal/history"
	treasurymetrics "quorum/internal/treasury/metrics"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/tx"
	"quorum/pkg/requestcontext"
)

// Directory is the slice of the member registry the treasury needs:
// role checks for admin-gated operations and the active-member count for the
// stats tuple.
type Directory interface {
	HasRole(ctx context.Context, principal id.Principal, role id.Role) (bool, error)
	ActiveCount(ctx context.Context) (int, error)
}

// ProposalCounter reports how many proposals exist, for the stats tuple.
type ProposalCounter interface {
	Count(ctx context.Context) (uint64, error)
}

// AnalyticsRecorder receives every executed fund movement.
type AnalyticsRecorder interface {
	RecordTransaction(ctx context.Context, amount int64, inflow bool)
}

// Stats is the vault-wide stats tuple.
type Stats struct {
	MemberCount   int    `json:"member_count"`
	Threshold     int    `json:"threshold"`
	Balance       int64  `json:"balance"`
	ProposalCount uint64 `json:"proposal_count"`
	Paused        bool   `json:"paused"`
}

// Service orchestrates deposits and vault-level administration.
type Service struct {
	state     *State
	ledger    Ledger
	histStore history.Store
	members   Directory
	proposals ProposalCounter
	analytics AnalyticsRecorder
	auditor   *audit.Publisher
	cache     *StatsCache // nil when Redis is not configured
	tx        tx.Runner
	logger    *slog.Logger
	metrics   *treasurymetrics.Metrics
}

func NewService(
	state *State,
	ledger Ledger,
	histStore history.Store,
	members Directory,
	proposals ProposalCounter,
	analytics AnalyticsRecorder,
	auditor *audit.Publisher,
	cache *StatsCache,
	txRunner tx.Runner,
	logger *slog.Logger,
	metrics *treasurymetrics.Metrics,
) *Service {
	return &Service{
		state:     state,
		ledger:    ledger,
		histStore: histStore,
		members:   members,
		proposals: proposals,
		analytics: analytics,
		auditor:   auditor,
		cache:     cache,
		tx:        txRunner,
		logger:    logger,
		metrics:   metrics,
	}
}

// State exposes the aggregate to sibling services (proposal and recurring
// engines debit through it).
func (s *Service) State() *State { return s.state }

// Ledger exposes the transfer collaborator to sibling services.
func (s *Service) Ledger() Ledger { return s.ledger }

// Deposit moves funds from the caller into the vault. Deposits are allowed
// while paused: the pause flag guards outflows and administration, never
// incoming funds. The history append happens after commit and never fails
// the accepted deposit.
func (s *Service) Deposit(ctx context.Context, amount int64) (id.TxID, error) {
	caller := requestcontext.Caller(ctx)
	if caller == "" {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	if amount <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidAmount, "deposit amount must be positive")
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ledger.Transfer(ctx, amount, caller, VaultAccount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeExecutionFailed, "ledger transfer failed")
		}
		s.state.Credit(amount)
		s.analytics.RecordTransaction(ctx, amount, true)
		return nil
	})
	if err != nil {
		return 0, err
	}

	// The deposit is committed; a history-store outage must not turn it into
	// a reported failure.
	txID, err := s.histStore.Append(ctx, &history.Record{
		Kind:      history.KindDeposit,
		From:      caller,
		To:        VaultAccount,
		Amount:    amount,
		Executor:  caller,
		Tick:      requestcontext.Tick(ctx),
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "history append failed for accepted deposit",
			"caller", caller,
			"amount", amount,
			"error", err,
		)
	}

	s.metrics.DepositsTotal.Inc()
	s.metrics.DepositedAmount.Add(float64(amount))
	s.auditor.Emit(ctx, audit.Event{
		Kind:   audit.KindDeposit,
		Actor:  caller,
		Amount: amount,
		Tick:   requestcontext.Tick(ctx),
	})
	s.logger.InfoContext(ctx, "deposit accepted",
		"caller", caller,
		"amount", amount,
		"tx_id", txID,
	)
	return txID, nil
}

// Stats returns the vault-wide stats tuple, served from the Redis snapshot
// when fresh.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	start := time.Now()
	defer s.metrics.ObserveStats(start)

	if s.cache != nil {
		cached, err := s.cache.Find(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "stats cache read failed", "error", err)
		} else if cached != nil {
			s.metrics.StatsCacheHits.Inc()
			return *cached, nil
		}
	}
	s.metrics.StatsCacheMiss.Inc()

	memberCount, err := s.members.ActiveCount(ctx)
	if err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "count members")
	}
	proposalCount, err := s.proposals.Count(ctx)
	if err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "count proposals")
	}

	stats := Stats{
		MemberCount:   memberCount,
		Threshold:     s.state.Threshold(),
		Balance:       s.state.Balance(),
		ProposalCount: proposalCount,
		Paused:        s.state.Paused(),
	}

	if s.cache != nil {
		if err := s.cache.Save(ctx, stats); err != nil {
			s.logger.WarnContext(ctx, "stats cache write failed", "error", err)
		}
	}
	return stats, nil
}

// SetPaused toggles the global pause flag. Admin only; allowed while paused
// so the vault can be unpaused.
func (s *Service) SetPaused(ctx context.Context, paused bool) error {
	caller := requestcontext.Caller(ctx)
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	s.state.SetPaused(paused)
	s.auditor.Emit(ctx, audit.Event{
		Kind:  audit.KindPauseToggled,
		Actor: caller,
		Tick:  requestcontext.Tick(ctx),
	})
	s.logger.InfoContext(ctx, "pause flag changed", "caller", caller, "paused", paused)
	return nil
}

// SetThreshold replaces the global signature threshold for future proposals.
func (s *Service) SetThreshold(ctx context.Context, threshold int) error {
	caller := requestcontext.Caller(ctx)
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if threshold < 1 {
		return dErrors.New(dErrors.CodeInvalidAmount, "threshold must be at least 1")
	}
	if err := s.state.SetThreshold(threshold); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "set threshold")
	}
	s.auditor.Emit(ctx, audit.Event{
		Kind:  audit.KindThresholdChanged,
		Actor: caller,
		Tick:  requestcontext.Tick(ctx),
	})
	s.logger.InfoContext(ctx, "signature threshold changed", "caller", caller, "threshold", threshold)
	return nil
}

// HistoryRecord looks up a transaction-history record.
func (s *Service) HistoryRecord(ctx context.Context, txID id.TxID) (*history.Record, error) {
	record, err := s.histStore.Get(ctx, txID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "transaction record not found")
	}
	return record, nil
}

func (s *Service) requireAdmin(ctx context.Context, caller id.Principal) error {
	if caller == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	isAdmin, err := s.members.HasRole(ctx, caller, id.RoleAdmin)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "role lookup failed")
	}
	if !isAdmin {
		return dErrors.New(dErrors.CodeUnauthorized, "admin role required")
	}
	return nil
}
