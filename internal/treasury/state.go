// Package treasury owns the vault's scalar state: balance, signature
// threshold, and the pause flag. Everything else (members, proposals,
// schedules) lives in its own domain store; this aggregate is the single
// place funds are credited and debited.
package treasury

import (
	"sync"

	"quorum/pkg/platform/sentinel"
)

// State is the vault state aggregate. It is process-wide, initialized once at
// startup, and mutated only through the defined operations.
type State struct {
	mu        sync.RWMutex
	balance   int64
	threshold int
	paused    bool
}

// NewState constructs the aggregate with the initial signature threshold.
func NewState(threshold int) *State {
	return &State{threshold: threshold}
}

func (s *State) Balance() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance
}

func (s *State) Threshold() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

func (s *State) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// SetPaused toggles the global pause flag and returns the new value.
func (s *State) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

// SetThreshold replaces the global signature threshold. Open proposals keep
// their creation-time snapshot; this only affects proposals created after the
// change.
func (s *State) SetThreshold(threshold int) error {
	if threshold < 1 {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = threshold
	return nil
}

// Credit adds funds to the vault balance.
func (s *State) Credit(amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance += amount
}

// Debit removes funds, failing with sentinel.ErrInsufficientFunds when the
// balance cannot cover the amount. Callers pre-check the balance inside the
// transaction boundary; this guard is the last line.
func (s *State) Debit(amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balance < amount {
		return sentinel.ErrInsufficientFunds
	}
	s.balance -= amount
	return nil
}
