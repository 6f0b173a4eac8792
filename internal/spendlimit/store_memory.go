package spendlimit

import (
	"context"
	"sync"

	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
)

// InMemory holds the spending-limit table. Rows are lazily created: absent
// entries mean the member has never been configured.
type InMemory struct {
	mu     sync.RWMutex
	limits map[id.Principal]*Limits
}

func NewInMemory() *InMemory {
	return &InMemory{limits: make(map[id.Principal]*Limits)}
}

// Find returns a copy of the member's row or sentinel.ErrNotFound.
func (s *InMemory) Find(_ context.Context, principal id.Principal) (*Limits, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limits, ok := s.limits[principal]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *limits
	return &copied, nil
}

// Set replaces the member's row.
func (s *InMemory) Set(_ context.Context, limits *Limits) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *limits
	s.limits[limits.Principal] = &stored
	return nil
}

// ExecuteUpsert runs mutate on the member's row under the store lock,
// creating the unlimited default first when absent.
func (s *InMemory) ExecuteUpsert(_ context.Context, principal id.Principal, now id.Tick, mutate func(*Limits)) (*Limits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limits, ok := s.limits[principal]
	if !ok {
		limits = unlimited(principal, now)
		s.limits[principal] = limits
	}
	mutate(limits)
	copied := *limits
	return &copied, nil
}
