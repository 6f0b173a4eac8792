// Package service implements the proposal lifecycle: create, vote, execute.
// Execution is the only path that moves proposal funds out of the vault, and
// it runs under the process-wide transaction runner so balance, limits, and
// proposal state move together.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quorum/internal/analytics"
	"quorum/internal/audit"
	"quorum/internal/history"
	"quorum/internal/proposal/models"
	proposalmetrics "quorum/internal/proposal/metrics"
	"quorum/internal/proposal/store"
	"quorum/internal/treasury"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/sentinel"
	"quorum/pkg/platform/tx"
	"quorum/pkg/requestcontext"
)

const (
	// EmergencyExpiryDelta is the fixed voting window for emergency
	// withdrawals, in ticks.
	EmergencyExpiryDelta id.Tick = 2880

	// EmergencyThresholdBump is added to the current global threshold when
	// snapshotting an emergency proposal's requirement.
	EmergencyThresholdBump = 2
)

// Directory is the slice of the member registry the engine needs.
type Directory interface {
	IsAuthorized(ctx context.Context, principal id.Principal) (bool, error)
	HasRole(ctx context.Context, principal id.Principal, role id.Role) (bool, error)
	Touch(ctx context.Context, principal id.Principal)
}

// Limits is the spending-limit tracker port. Validate is pure; Consume
// mutates and must only run after Validate succeeded in the same
// transaction.
type Limits interface {
	Validate(ctx context.Context, member id.Principal, amount int64) error
	Consume(ctx context.Context, member id.Principal, amount int64) error
}

// AnalyticsRecorder receives execution events and member activity.
type AnalyticsRecorder interface {
	RecordTransaction(ctx context.Context, amount int64, inflow bool)
	RecordMemberActivity(ctx context.Context, member id.Principal, update analytics.ActivityUpdate)
}

// Service is the proposal engine.
type Service struct {
	store     *store.Memory
	members   Directory
	limits    Limits
	state     *treasury.State
	ledger    treasury.Ledger
	histStore history.Store
	analytics AnalyticsRecorder
	auditor   *audit.Publisher
	tx        tx.Runner
	logger    *slog.Logger
	metrics   *proposalmetrics.Metrics

	// seedEmergencyVote controls whether the proposer's implicit approval on
	// an emergency withdrawal also writes a ballot row. When false only the
	// tally is seeded and the proposer may still cast an explicit vote.
	seedEmergencyVote bool
}

func NewService(
	proposalStore *store.Memory,
	members Directory,
	limits Limits,
	state *treasury.State,
	ledger treasury.Ledger,
	histStore history.Store,
	analyticsRecorder AnalyticsRecorder,
	auditor *audit.Publisher,
	txRunner tx.Runner,
	logger *slog.Logger,
	metrics *proposalmetrics.Metrics,
	seedEmergencyVote bool,
) *Service {
	return &Service{
		store:             proposalStore,
		members:           members,
		limits:            limits,
		state:             state,
		ledger:            ledger,
		histStore:         histStore,
		analytics:         analyticsRecorder,
		auditor:           auditor,
		tx:                txRunner,
		logger:            logger,
		metrics:           metrics,
		seedEmergencyVote: seedEmergencyVote,
	}
}

// Create opens a standard proposal. The approval threshold is snapshotted
// from vault state now; later threshold changes do not affect it.
func (s *Service) Create(ctx context.Context, recipient id.Principal, amount int64, description string, expiryDelta id.Tick) (*models.Proposal, error) {
	caller, err := s.requireAuthorized(ctx)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "proposal amount must be positive")
	}
	if expiryDelta <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "expiry delta must be positive")
	}
	if recipient == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "recipient required")
	}

	now := requestcontext.Tick(ctx)
	proposal := &models.Proposal{
		Kind:              models.KindStandard,
		Proposer:          caller,
		Recipient:         recipient,
		Amount:            amount,
		Description:       description,
		ThresholdRequired: s.state.Threshold(),
		CreatedAt:         now,
		ExpiresAt:         now + expiryDelta,
	}
	if _, err := s.store.Create(ctx, proposal); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create proposal")
	}

	s.members.Touch(ctx, caller)
	s.analytics.RecordMemberActivity(ctx, caller, analytics.ActivityUpdate{
		ProposalCreated: true,
		ProposedAmount:  amount,
	})
	s.metrics.Created.WithLabelValues(string(models.KindStandard)).Inc()
	s.auditor.Emit(ctx, audit.Event{
		Kind:    audit.KindProposalCreated,
		Actor:   caller,
		Subject: proposal.ID.String(),
		Amount:  amount,
		Tick:    now,
	})
	s.logger.InfoContext(ctx, "proposal created",
		"proposal_id", proposal.ID,
		"proposer", caller,
		"amount", amount,
		"threshold", proposal.ThresholdRequired,
		"expires_at", proposal.ExpiresAt,
	)
	return proposal, nil
}

// EmergencyWithdrawal opens an admin-only proposal with a raised threshold
// snapshot and a fixed, longer voting window. The proposer's approval is
// seeded into the tally.
func (s *Service) EmergencyWithdrawal(ctx context.Context, recipient id.Principal, amount int64, reason string) (*models.Proposal, error) {
	caller, err := s.requireAuthorized(ctx)
	if err != nil {
		return nil, err
	}
	isAdmin, err := s.members.HasRole(ctx, caller, id.RoleAdmin)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "role lookup failed")
	}
	if !isAdmin {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "admin role required")
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "withdrawal amount must be positive")
	}
	if recipient == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "recipient required")
	}

	now := requestcontext.Tick(ctx)
	proposal := &models.Proposal{
		Kind:              models.KindEmergency,
		Proposer:          caller,
		Recipient:         recipient,
		Amount:            amount,
		Description:       reason,
		ThresholdRequired: s.state.Threshold() + EmergencyThresholdBump,
		CreatedAt:         now,
		ExpiresAt:         now + EmergencyExpiryDelta,
	}
	if !s.seedEmergencyVote {
		proposal.VotesFor = 1
	}
	if _, err := s.store.Create(ctx, proposal); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create emergency withdrawal")
	}
	if s.seedEmergencyVote {
		seeded, err := s.store.CastVote(ctx, &models.Vote{
			ProposalID: proposal.ID,
			Voter:      caller,
			Approve:    true,
			CastAt:     now,
		}, func(p *models.Proposal) error { return p.CanVote(now) })
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "seed proposer vote")
		}
		proposal = seeded
	}

	s.members.Touch(ctx, caller)
	s.analytics.RecordMemberActivity(ctx, caller, analytics.ActivityUpdate{
		ProposalCreated: true,
		ProposedAmount:  amount,
	})
	s.metrics.Created.WithLabelValues(string(models.KindEmergency)).Inc()
	s.auditor.Emit(ctx, audit.Event{
		Kind:    audit.KindEmergencyCreated,
		Actor:   caller,
		Subject: proposal.ID.String(),
		Amount:  amount,
		Tick:    now,
	})
	s.logger.WarnContext(ctx, "emergency withdrawal created",
		"proposal_id", proposal.ID,
		"proposer", caller,
		"amount", amount,
		"threshold", proposal.ThresholdRequired,
	)
	return proposal, nil
}

// Vote records the caller's write-once ballot. The ballot and tally update
// are atomic; a second ballot from the same member is rejected regardless of
// direction.
func (s *Service) Vote(ctx context.Context, proposalID id.ProposalID, approve bool) (*models.Proposal, error) {
	caller, err := s.requireAuthorized(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Tick(ctx)
	proposal, err := s.store.CastVote(ctx, &models.Vote{
		ProposalID: proposalID,
		Voter:      caller,
		Approve:    approve,
		CastAt:     now,
	}, func(p *models.Proposal) error { return p.CanVote(now) })
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeNotFound, "proposal not found")
	case errors.Is(err, sentinel.ErrConflict):
		return nil, dErrors.New(dErrors.CodeAlreadyVoted, "member has already voted on this proposal")
	case err != nil:
		return nil, err
	}

	s.members.Touch(ctx, caller)
	s.analytics.RecordMemberActivity(ctx, caller, analytics.ActivityUpdate{VoteCast: true})
	s.metrics.VotesCast.Inc()
	s.auditor.Emit(ctx, audit.Event{
		Kind:    audit.KindVoteCast,
		Actor:   caller,
		Subject: proposalID.String(),
		Tick:    now,
	})
	s.logger.InfoContext(ctx, "vote recorded",
		"proposal_id", proposalID,
		"voter", caller,
		"approve", approve,
		"votes_for", proposal.VotesFor,
		"votes_against", proposal.VotesAgainst,
	)
	return proposal, nil
}

// Execute settles an approved proposal. Order inside the transaction:
// validate everything, transfer on the ledger, debit vault state, consume
// the executor's spending allowance, mark executed, record analytics. A
// transfer failure aborts with zero mutation; a proposal that fails
// validation is left open for retry unless expired. The history append
// happens after commit and never fails the settled execution.
func (s *Service) Execute(ctx context.Context, proposalID id.ProposalID) (id.TxID, error) {
	caller, err := s.requireAuthorized(ctx)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	defer s.metrics.ObserveExecute(start)

	now := requestcontext.Tick(ctx)
	var executed *models.Proposal
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		proposal, err := s.store.Find(ctx, proposalID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "proposal not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "proposal lookup failed")
		}

		if err := proposal.CanExecute(now, s.state.Balance()); err != nil {
			return err
		}
		if err := s.limits.Validate(ctx, caller, proposal.Amount); err != nil {
			return err
		}

		if err := s.ledger.Transfer(ctx, proposal.Amount, treasury.VaultAccount, proposal.Recipient); err != nil {
			return dErrors.Wrap(err, dErrors.CodeExecutionFailed, "ledger transfer failed")
		}
		if err := s.state.Debit(proposal.Amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeExecutionFailed, "debit vault balance")
		}
		if err := s.limits.Consume(ctx, caller, proposal.Amount); err != nil {
			return err
		}

		executed, err = s.store.Execute(ctx, proposalID,
			func(p *models.Proposal) error {
				if p.Executed {
					return dErrors.New(dErrors.CodeExecutionFailed, "proposal already executed")
				}
				return nil
			},
			func(p *models.Proposal) { p.MarkExecuted() },
		)
		if err != nil {
			return err
		}

		s.analytics.RecordTransaction(ctx, executed.Amount, false)
		return nil
	})
	if err != nil {
		s.metrics.ExecuteRejected.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
		return 0, err
	}

	// The execution is committed; a history-store outage must not turn it
	// into a reported failure.
	txID, err := s.histStore.Append(ctx, &history.Record{
		Kind:      history.KindProposal,
		RefID:     uint64(proposalID),
		From:      treasury.VaultAccount,
		To:        executed.Recipient,
		Amount:    executed.Amount,
		Executor:  caller,
		Tick:      now,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "history append failed for executed proposal",
			"proposal_id", proposalID,
			"amount", executed.Amount,
			"error", err,
		)
	}

	s.members.Touch(ctx, caller)
	s.analytics.RecordMemberActivity(ctx, caller, analytics.ActivityUpdate{
		Executed:       true,
		ExecutedAmount: executed.Amount,
	})
	s.metrics.Executed.Inc()
	s.metrics.ExecutedAmount.Add(float64(executed.Amount))
	s.auditor.Emit(ctx, audit.Event{
		Kind:    audit.KindProposalExecuted,
		Actor:   caller,
		Subject: proposalID.String(),
		Amount:  executed.Amount,
		Tick:    now,
	})
	s.logger.InfoContext(ctx, "proposal executed",
		"proposal_id", proposalID,
		"executor", caller,
		"amount", executed.Amount,
		"recipient", executed.Recipient,
		"tx_id", txID,
	)
	return txID, nil
}

// IsExecutable reports whether Execute would currently succeed for the
// caller, without mutating anything. The reason is empty when executable.
func (s *Service) IsExecutable(ctx context.Context, proposalID id.ProposalID) (bool, string, error) {
	caller, err := s.requireAuthorized(ctx)
	if err != nil {
		return false, "", err
	}

	proposal, err := s.store.Find(ctx, proposalID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, "", dErrors.New(dErrors.CodeNotFound, "proposal not found")
	}
	if err != nil {
		return false, "", dErrors.Wrap(err, dErrors.CodeInternal, "proposal lookup failed")
	}

	now := requestcontext.Tick(ctx)
	if err := proposal.CanExecute(now, s.state.Balance()); err != nil {
		return false, reasonOf(err), nil
	}
	if err := s.limits.Validate(ctx, caller, proposal.Amount); err != nil {
		return false, reasonOf(err), nil
	}
	return true, "", nil
}

// Get returns one proposal.
func (s *Service) Get(ctx context.Context, proposalID id.ProposalID) (*models.Proposal, error) {
	proposal, err := s.store.Find(ctx, proposalID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "proposal not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "proposal lookup failed")
	}
	return proposal, nil
}

// GetVote returns one member's ballot on a proposal.
func (s *Service) GetVote(ctx context.Context, proposalID id.ProposalID, voter id.Principal) (*models.Vote, error) {
	vote, err := s.store.FindVote(ctx, proposalID, voter)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "vote not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "vote lookup failed")
	}
	return vote, nil
}

// Count reports how many proposals exist.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	return s.store.Count(ctx)
}

func (s *Service) requireAuthorized(ctx context.Context) (id.Principal, error) {
	if s.state.Paused() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "vault is paused")
	}
	caller := requestcontext.Caller(ctx)
	if caller == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	authorized, err := s.members.IsAuthorized(ctx, caller)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "authorization lookup failed")
	}
	if !authorized {
		return "", dErrors.New(dErrors.CodeUnauthorized, "active signer or admin required")
	}
	return caller, nil
}

func reasonOf(err error) string {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
