// Package recurring implements scheduled repeating payouts. Schedules are
// created by admins, settle without the per-member spending tracker (the
// admin approved the full run at creation), and stop when exhausted or
// cancelled.
package recurring

import (
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
)

// Payment is one recurring payout schedule.
//
// NextDue advances by Frequency from the schedule origin, not from the
// execution tick, so a schedule that lags behind catches up one payout per
// execution call.
type Payment struct {
	ID             id.PaymentID
	Recipient      id.Principal
	Amount         int64
	Description    string
	Frequency      id.Tick
	TotalPayments  int64
	ExecutionCount int64
	CreatedBy      id.Principal
	CreatedAt      id.Tick
	LastExecuted   id.Tick // zero until the first payout
	NextDue        id.Tick
	Active         bool
}

// Exhausted reports whether the schedule has run its full count.
func (p *Payment) Exhausted() bool {
	return p.ExecutionCount >= p.TotalPayments
}

// Due reports whether the schedule owes a payout at the given tick.
func (p *Payment) Due(now id.Tick) bool {
	return p.Active && !p.Exhausted() && now >= p.NextDue
}

// CanExecute checks every schedule-local execution precondition.
func (p *Payment) CanExecute(now id.Tick) error {
	if p.Exhausted() {
		return dErrors.New(dErrors.CodeExecutionFailed, "payment schedule is exhausted")
	}
	if !p.Active {
		return dErrors.New(dErrors.CodeExecutionFailed, "payment schedule is cancelled")
	}
	if now < p.NextDue {
		return dErrors.New(dErrors.CodeExecutionFailed, "payment is not due yet")
	}
	return nil
}

// ApplyExecution advances the schedule past one payout, deactivating it the
// moment the payout count reaches the target.
func (p *Payment) ApplyExecution(now id.Tick) {
	p.ExecutionCount++
	p.LastExecuted = now
	p.NextDue += p.Frequency
	if p.ExecutionCount >= p.TotalPayments {
		p.Active = false
	}
}

// CanCancel gates cancellation to the creator or an admin.
func (p *Payment) CanCancel(caller id.Principal, isAdmin bool) error {
	if !p.Active {
		return dErrors.New(dErrors.CodeConflict, "payment schedule already cancelled")
	}
	if !isAdmin && caller != p.CreatedBy {
		return dErrors.New(dErrors.CodeUnauthorized, "only the creator or an admin can cancel")
	}
	return nil
}
