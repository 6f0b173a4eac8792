package recurring

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quorum/internal/audit"
	"quorum/internal/history"
	recurringmetrics "quorum/internal/recurring/metrics"
	"quorum/internal/treasury"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/sentinel"
	"quorum/pkg/platform/tx"
	"quorum/pkg/requestcontext"
)

// Directory is the slice of the member registry the scheduler needs.
type Directory interface {
	IsAuthorized(ctx context.Context, principal id.Principal) (bool, error)
	HasRole(ctx context.Context, principal id.Principal, role id.Role) (bool, error)
	Touch(ctx context.Context, principal id.Principal)
}

// AnalyticsRecorder receives every settled payout.
type AnalyticsRecorder interface {
	RecordTransaction(ctx context.Context, amount int64, inflow bool)
}

// BatchResult is the per-schedule outcome of an ExecuteBatch call. Failed
// entries carry the error; the batch itself never fails as a whole.
type BatchResult struct {
	PaymentID id.PaymentID `json:"payment_id"`
	TxID      id.TxID      `json:"tx_id,omitempty"`
	Code      string       `json:"code,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Service is the recurring payment scheduler.
type Service struct {
	store     *InMemory
	members   Directory
	state     *treasury.State
	ledger    treasury.Ledger
	histStore history.Store
	analytics AnalyticsRecorder
	auditor   *audit.Publisher
	tx        tx.Runner
	logger    *slog.Logger
	metrics   *recurringmetrics.Metrics
}

func NewService(
	store *InMemory,
	members Directory,
	state *treasury.State,
	ledger treasury.Ledger,
	histStore history.Store,
	analyticsRecorder AnalyticsRecorder,
	auditor *audit.Publisher,
	txRunner tx.Runner,
	logger *slog.Logger,
	metrics *recurringmetrics.Metrics,
) *Service {
	return &Service{
		store:     store,
		members:   members,
		state:     state,
		ledger:    ledger,
		histStore: histStore,
		analytics: analyticsRecorder,
		auditor:   auditor,
		tx:        txRunner,
		logger:    logger,
		metrics:   metrics,
	}
}

// Create opens a payment schedule. Admin only: the schedule settles without
// per-payout spending checks, so creation is where the spend is approved.
// The first payout comes due one frequency after creation.
func (s *Service) Create(ctx context.Context, recipient id.Principal, amount int64, description string, frequency id.Tick, totalPayments int64) (*Payment, error) {
	caller, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "payment amount must be positive")
	}
	if frequency <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "frequency must be positive")
	}
	if totalPayments <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "total payments must be positive")
	}
	if recipient == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "recipient required")
	}

	now := requestcontext.Tick(ctx)
	payment := &Payment{
		Recipient:     recipient,
		Amount:        amount,
		Description:   description,
		Frequency:     frequency,
		TotalPayments: totalPayments,
		CreatedBy:     caller,
		CreatedAt:     now,
		NextDue:       now + frequency,
		Active:        true,
	}
	if _, err := s.store.Create(ctx, payment); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create payment schedule")
	}

	s.members.Touch(ctx, caller)
	s.metrics.SchedulesCreated.Inc()
	s.auditor.Emit(ctx, audit.Event{
		Kind:    audit.KindPaymentCreated,
		Actor:   caller,
		Subject: payment.ID.String(),
		Amount:  amount,
		Tick:    now,
	})
	s.logger.InfoContext(ctx, "payment schedule created",
		"payment_id", payment.ID,
		"creator", caller,
		"amount", amount,
		"frequency", frequency,
		"total_payments", totalPayments,
	)
	return payment, nil
}

// ExecuteDue settles one due payout on the schedule. Any caller may trigger
// it while the vault is unpaused; the spend was authorized at creation, so
// neither membership nor the per-member spending tracker is consulted. Order
// inside the transaction: validate, transfer, debit, advance schedule, record
// analytics. The history append happens after commit and never fails the
// settled payout.
func (s *Service) ExecuteDue(ctx context.Context, paymentID id.PaymentID) (id.TxID, error) {
	caller, err := s.requireCaller(ctx)
	if err != nil {
		return 0, err
	}

	now := requestcontext.Tick(ctx)
	var settled *Payment
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		payment, err := s.store.Find(ctx, paymentID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "payment schedule not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "payment lookup failed")
		}
		if err := payment.CanExecute(now); err != nil {
			return err
		}
		if s.state.Balance() < payment.Amount {
			return dErrors.New(dErrors.CodeInvalidAmount, "insufficient treasury balance")
		}

		if err := s.ledger.Transfer(ctx, payment.Amount, treasury.VaultAccount, payment.Recipient); err != nil {
			return dErrors.Wrap(err, dErrors.CodeExecutionFailed, "ledger transfer failed")
		}
		if err := s.state.Debit(payment.Amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeExecutionFailed, "debit vault balance")
		}

		settled, err = s.store.Execute(ctx, paymentID,
			func(p *Payment) error { return p.CanExecute(now) },
			func(p *Payment) { p.ApplyExecution(now) },
		)
		if err != nil {
			return err
		}

		s.analytics.RecordTransaction(ctx, settled.Amount, false)
		return nil
	})
	if err != nil {
		s.metrics.PayoutsRejected.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
		return 0, err
	}

	// The payout is committed; a history-store outage must not turn it into a
	// reported failure.
	txID, err := s.histStore.Append(ctx, &history.Record{
		Kind:      history.KindRecurring,
		RefID:     uint64(paymentID),
		From:      treasury.VaultAccount,
		To:        settled.Recipient,
		Amount:    settled.Amount,
		Executor:  caller,
		Tick:      now,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "history append failed for settled payout",
			"payment_id", paymentID,
			"amount", settled.Amount,
			"error", err,
		)
	}

	s.members.Touch(ctx, caller)
	s.metrics.PayoutsExecuted.Inc()
	s.metrics.PayoutAmount.Add(float64(settled.Amount))
	s.auditor.Emit(ctx, audit.Event{
		Kind:    audit.KindPaymentExecuted,
		Actor:   caller,
		Subject: paymentID.String(),
		Amount:  settled.Amount,
		Tick:    now,
	})
	s.logger.InfoContext(ctx, "recurring payout settled",
		"payment_id", paymentID,
		"executor", caller,
		"amount", settled.Amount,
		"execution_count", settled.ExecutionCount,
		"next_due", settled.NextDue,
		"tx_id", txID,
	)
	return txID, nil
}

// ExecuteBatch settles each listed schedule independently and reports
// per-schedule outcomes. One failure never blocks the rest.
func (s *Service) ExecuteBatch(ctx context.Context, paymentIDs []id.PaymentID) []BatchResult {
	results := make([]BatchResult, 0, len(paymentIDs))
	for _, paymentID := range paymentIDs {
		result := BatchResult{PaymentID: paymentID}
		txID, err := s.ExecuteDue(ctx, paymentID)
		if err != nil {
			result.Code = string(dErrors.CodeOf(err))
			result.Error = reasonOf(err)
		} else {
			result.TxID = txID
		}
		results = append(results, result)
	}
	return results
}

// ExecuteAllDue sweeps due schedules, at most limit per call (zero means
// unbounded). Used by the background runner; anything left over is picked up
// by the next sweep.
func (s *Service) ExecuteAllDue(ctx context.Context, limit int) []BatchResult {
	s.metrics.RunnerSweeps.Inc()
	due, err := s.store.ListDue(ctx, requestcontext.Tick(ctx))
	if err != nil {
		s.logger.ErrorContext(ctx, "due payment sweep failed", "error", err)
		return nil
	}
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	paymentIDs := make([]id.PaymentID, 0, len(due))
	for _, payment := range due {
		paymentIDs = append(paymentIDs, payment.ID)
	}
	return s.ExecuteBatch(ctx, paymentIDs)
}

// Cancel deactivates a schedule. Creator or admin only; terminal.
func (s *Service) Cancel(ctx context.Context, paymentID id.PaymentID) (*Payment, error) {
	caller, err := s.requireMember(ctx)
	if err != nil {
		return nil, err
	}
	isAdmin, err := s.members.HasRole(ctx, caller, id.RoleAdmin)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "role lookup failed")
	}

	cancelled, err := s.store.Execute(ctx, paymentID,
		func(p *Payment) error { return p.CanCancel(caller, isAdmin) },
		func(p *Payment) { p.Active = false },
	)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "payment schedule not found")
	}
	if err != nil {
		return nil, err
	}

	s.members.Touch(ctx, caller)
	s.auditor.Emit(ctx, audit.Event{
		Kind:    audit.KindPaymentCancelled,
		Actor:   caller,
		Subject: paymentID.String(),
		Tick:    requestcontext.Tick(ctx),
	})
	s.logger.InfoContext(ctx, "payment schedule cancelled",
		"payment_id", paymentID,
		"caller", caller,
	)
	return cancelled, nil
}

// FreezeAll deactivates every active schedule. Admin only; each schedule is
// visited individually so the count reported is exact. Terminal like Cancel:
// frozen schedules must be recreated, not thawed.
func (s *Service) FreezeAll(ctx context.Context) (int, error) {
	caller, err := s.requireAdmin(ctx)
	if err != nil {
		return 0, err
	}

	payments, err := s.store.List(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "list payment schedules")
	}

	frozen := 0
	for _, payment := range payments {
		if !payment.Active {
			continue
		}
		_, err := s.store.Execute(ctx, payment.ID,
			func(p *Payment) error {
				if !p.Active {
					return dErrors.New(dErrors.CodeConflict, "payment schedule already cancelled")
				}
				return nil
			},
			func(p *Payment) { p.Active = false },
		)
		if err != nil {
			continue
		}
		frozen++
	}

	s.metrics.SchedulesFrozen.Add(float64(frozen))
	s.auditor.Emit(ctx, audit.Event{
		Kind:   audit.KindPaymentsFrozen,
		Actor:  caller,
		Amount: int64(frozen),
		Tick:   requestcontext.Tick(ctx),
	})
	s.logger.WarnContext(ctx, "all payment schedules frozen",
		"caller", caller,
		"frozen", frozen,
	)
	return frozen, nil
}

// Get returns one schedule.
func (s *Service) Get(ctx context.Context, paymentID id.PaymentID) (*Payment, error) {
	payment, err := s.store.Find(ctx, paymentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "payment schedule not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "payment lookup failed")
	}
	return payment, nil
}

// List returns every schedule.
func (s *Service) List(ctx context.Context) ([]*Payment, error) {
	payments, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list payment schedules")
	}
	return payments, nil
}

// requireCaller gates operations open to any identified caller: the vault
// must be unpaused and the request must carry a principal.
func (s *Service) requireCaller(ctx context.Context) (id.Principal, error) {
	if s.state.Paused() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "vault is paused")
	}
	caller := requestcontext.Caller(ctx)
	if caller == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	return caller, nil
}

func (s *Service) requireMember(ctx context.Context) (id.Principal, error) {
	caller, err := s.requireCaller(ctx)
	if err != nil {
		return "", err
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

func (s *Service) requireAdmin(ctx context.Context) (id.Principal, error) {
	caller, err := s.requireMember(ctx)
	if err != nil {
		return "", err
	}
	isAdmin, err := s.members.HasRole(ctx, caller, id.RoleAdmin)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "role lookup failed")
	}
	if !isAdmin {
		return "", dErrors.New(dErrors.CodeUnauthorized, "admin role required")
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
