package spendlimit

import (
	"context"
	"errors"
	"log/slog"

	"quorum/internal/platform/config"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/sentinel"
	"quorum/pkg/requestcontext"
)

// RoleChecker is the slice of the member registry the tracker needs for
// admin-gated reconfiguration.
type RoleChecker interface {
	HasRole(ctx context.Context, principal id.Principal, role id.Role) (bool, error)
}

// Pauser exposes the global pause flag.
type Pauser interface {
	Paused() bool
}

// Tracker is the spending-limit engine.
type Tracker struct {
	store  *InMemory
	roles  RoleChecker
	pauser Pauser
	logger *slog.Logger
}

func NewTracker(store *InMemory, roles RoleChecker, pauser Pauser, logger *slog.Logger) *Tracker {
	return &Tracker{store: store, roles: roles, pauser: pauser, logger: logger}
}

// Validate checks that member can spend amount without breaching any cap,
// after applying any due rollover. It never mutates state: the rollover is
// computed on a copy, so a failed validation leaves no trace and a successful
// one can be followed by Consume inside the same transaction.
func (t *Tracker) Validate(ctx context.Context, member id.Principal, amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount must be positive")
	}

	limits, err := t.store.Find(ctx, member)
	if errors.Is(err, sentinel.ErrNotFound) {
		// Unconfigured members are effectively unlimited.
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "spending limit lookup failed")
	}

	limits.applyRollover(requestcontext.Tick(ctx))
	return limits.checkCaps(amount)
}

// Consume applies the rollover and unconditionally adds amount to all three
// accumulators, persisting the new reset markers. Must only be called after
// Validate succeeded within the same transaction boundary.
func (t *Tracker) Consume(ctx context.Context, member id.Principal, amount int64) error {
	now := requestcontext.Tick(ctx)
	_, err := t.store.ExecuteUpsert(ctx, member, now, func(l *Limits) {
		l.applyRollover(now)
		l.DailySpent += amount
		l.MonthlySpent += amount
		l.TotalSpent += amount
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "consume spending limit")
	}
	return nil
}

// SetLimits configures a member's caps, resetting all accumulators. Admin
// only, not while paused.
func (t *Tracker) SetLimits(ctx context.Context, member id.Principal, daily, monthly, total int64) (*Limits, error) {
	if t.pauser.Paused() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "vault is paused")
	}
	caller := requestcontext.Caller(ctx)
	isAdmin, err := t.roles.HasRole(ctx, caller, id.RoleAdmin)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "role lookup failed")
	}
	if !isAdmin {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "admin role required")
	}
	if daily <= 0 || monthly <= 0 || total <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "limits must be positive")
	}

	now := requestcontext.Tick(ctx)
	limits := &Limits{
		Principal:      member,
		DailyLimit:     daily,
		MonthlyLimit:   monthly,
		TotalLimit:     total,
		LastResetDay:   dayIndex(now),
		LastResetMonth: monthIndex(now),
	}
	if err := t.store.Set(ctx, limits); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "set spending limits")
	}

	t.logger.InfoContext(ctx, "spending limits configured",
		"member", member,
		"daily", daily,
		"monthly", monthly,
		"total", total,
	)
	return limits, nil
}

// Get returns the member's limit row.
func (t *Tracker) Get(ctx context.Context, member id.Principal) (*Limits, error) {
	limits, err := t.store.Find(ctx, member)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no spending limits configured")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "spending limit lookup failed")
	}
	return limits, nil
}

// RemainingDaily reports how much the member can still spend today.
// Unconfigured members report the unlimited sentinel.
func (t *Tracker) RemainingDaily(ctx context.Context, member id.Principal) (int64, error) {
	limits, err := t.store.Find(ctx, member)
	if errors.Is(err, sentinel.ErrNotFound) {
		return UnlimitedCap, nil
	}
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "spending limit lookup failed")
	}
	limits.applyRollover(requestcontext.Tick(ctx))
	remaining := limits.DailyLimit - limits.DailySpent
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ApplyPolicy loads the startup policy table. Runs before the server accepts
// calls, so it writes the store directly without a caller gate.
func (t *Tracker) ApplyPolicy(ctx context.Context, policy config.SpendingPolicy, now id.Tick) error {
	for _, row := range policy.Limits {
		principal, err := id.ParsePrincipal(row.Principal)
		if err != nil {
			return err
		}
		if row.Daily <= 0 || row.Monthly <= 0 || row.Total <= 0 {
			return dErrors.New(dErrors.CodeInvalidAmount, "policy limits must be positive")
		}
		limits := &Limits{
			Principal:      principal,
			DailyLimit:     row.Daily,
			MonthlyLimit:   row.Monthly,
			TotalLimit:     row.Total,
			LastResetDay:   dayIndex(now),
			LastResetMonth: monthIndex(now),
		}
		if err := t.store.Set(ctx, limits); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "apply spending policy")
		}
	}
	return nil
}
