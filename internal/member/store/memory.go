package store

import (
	"context"
	"sync"

	"quorum/internal/member/models"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
)

// InMemory is the member registry store. Copies go in and out; callers never
// hold references into the map.
type InMemory struct {
	mu      sync.RWMutex
	members map[id.Principal]*models.Member
}

func New() *InMemory {
	return &InMemory{members: make(map[id.Principal]*models.Member)}
}

// Create inserts a new member, failing with sentinel.ErrConflict when the
// principal already has a row (active or tombstoned).
func (s *InMemory) Create(_ context.Context, member *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.members[member.Principal]; exists {
		return sentinel.ErrConflict
	}
	stored := *member
	s.members[member.Principal] = &stored
	return nil
}

// Find returns a copy of the member row or sentinel.ErrNotFound.
func (s *InMemory) Find(_ context.Context, principal id.Principal) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.members[principal]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *member
	return &copied, nil
}

// Execute runs validate then mutate on the member under the store lock,
// returning a copy of the updated row. The validate error aborts with no
// mutation.
func (s *InMemory) Execute(
	_ context.Context,
	principal id.Principal,
	validate func(*models.Member) error,
	mutate func(*models.Member),
) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[principal]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(member); err != nil {
		return nil, err
	}
	mutate(member)
	copied := *member
	return &copied, nil
}

// ActiveCount returns the number of non-tombstoned members.
func (s *InMemory) ActiveCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.members {
		if m.Active {
			count++
		}
	}
	return count, nil
}
