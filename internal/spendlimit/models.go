// Package spendlimit enforces per-member spending caps over rolling daily,
// monthly, and lifetime windows. Validation and consumption are split so the
// check can run as a side-effect-free pre-flight gate: the proposal engine
// calls Validate before the ledger transfer and Consume only after it
// succeeds.
package spendlimit

import (
	"math"

	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
)

const (
	// DailyPeriod and MonthlyPeriod are the window lengths in ticks.
	DailyPeriod   id.Tick = 1440
	MonthlyPeriod id.Tick = 43200

	// UnlimitedCap is the effective cap for members without explicit limits,
	// large enough that no realistic treasury hits it.
	UnlimitedCap int64 = math.MaxInt64 / 4
)

// Limits is one member's spending-limit row.
//
// Invariants (hold after every update):
//   - DailySpent <= DailyLimit
//   - MonthlySpent <= MonthlyLimit
//   - TotalSpent <= TotalLimit
//
// Resets zero an accumulator exactly once per period rollover, never
// retroactively.
type Limits struct {
	Principal id.Principal `json:"principal"`

	DailyLimit   int64 `json:"daily_limit"`
	MonthlyLimit int64 `json:"monthly_limit"`
	TotalLimit   int64 `json:"total_limit"`

	DailySpent   int64 `json:"daily_spent"`
	MonthlySpent int64 `json:"monthly_spent"`
	TotalSpent   int64 `json:"total_spent"`

	LastResetDay   int64 `json:"last_reset_day"`
	LastResetMonth int64 `json:"last_reset_month"`
}

// unlimited builds the default row for members without explicit configuration.
func unlimited(principal id.Principal, now id.Tick) *Limits {
	return &Limits{
		Principal:      principal,
		DailyLimit:     UnlimitedCap,
		MonthlyLimit:   UnlimitedCap,
		TotalLimit:     UnlimitedCap,
		LastResetDay:   dayIndex(now),
		LastResetMonth: monthIndex(now),
	}
}

func dayIndex(now id.Tick) int64   { return int64(now / DailyPeriod) }
func monthIndex(now id.Tick) int64 { return int64(now / MonthlyPeriod) }

// applyRollover zeroes accumulators whose period has advanced past the stored
// reset marker.
func (l *Limits) applyRollover(now id.Tick) {
	if day := dayIndex(now); day > l.LastResetDay {
		l.DailySpent = 0
		l.LastResetDay = day
	}
	if month := monthIndex(now); month > l.LastResetMonth {
		l.MonthlySpent = 0
		l.LastResetMonth = month
	}
}

// checkCaps verifies spent+amount stays within all three caps. Rollover must
// already be applied.
func (l *Limits) checkCaps(amount int64) error {
	if l.DailySpent+amount > l.DailyLimit {
		return dErrors.New(dErrors.CodeLimitExceeded, "daily spending limit exceeded")
	}
	if l.MonthlySpent+amount > l.MonthlyLimit {
		return dErrors.New(dErrors.CodeLimitExceeded, "monthly spending limit exceeded")
	}
	if l.TotalSpent+amount > l.TotalLimit {
		return dErrors.New(dErrors.CodeLimitExceeded, "total spending limit exceeded")
	}
	return nil
}
