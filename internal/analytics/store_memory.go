package analytics

import (
	"context"
	"sync"

	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
)

// InMemory holds the period and member analytics tables.
type InMemory struct {
	mu      sync.RWMutex
	periods map[int64]*PeriodStats
	members map[id.Principal]*MemberStats
}

func NewInMemory() *InMemory {
	return &InMemory{
		periods: make(map[int64]*PeriodStats),
		members: make(map[id.Principal]*MemberStats),
	}
}

// UpsertPeriod runs mutate on the bucket's row, lazily initializing it with
// its bounds.
func (s *InMemory) UpsertPeriod(_ context.Context, bucket int64, mutate func(*PeriodStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.periods[bucket]
	if !ok {
		stats = &PeriodStats{
			Period:    bucket,
			StartTick: id.Tick(bucket) * PeriodLength,
			EndTick:   id.Tick(bucket+1)*PeriodLength - 1,
		}
		s.periods[bucket] = stats
	}
	mutate(stats)
}

// UpsertMember runs mutate on the member's row, lazily initializing it.
func (s *InMemory) UpsertMember(_ context.Context, member id.Principal, mutate func(*MemberStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.members[member]
	if !ok {
		stats = &MemberStats{Principal: member}
		s.members[member] = stats
	}
	mutate(stats)
}

// FindPeriod returns a copy of the bucket's row or sentinel.ErrNotFound.
func (s *InMemory) FindPeriod(_ context.Context, bucket int64) (*PeriodStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.periods[bucket]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *stats
	return &copied, nil
}

// FindMember returns a copy of the member's row or sentinel.ErrNotFound.
func (s *InMemory) FindMember(_ context.Context, member id.Principal) (*MemberStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.members[member]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *stats
	return &copied, nil
}

// OutflowsBetween sums outflows for buckets in [from, to] inclusive.
func (s *InMemory) OutflowsBetween(_ context.Context, from, to int64) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for bucket, stats := range s.periods {
		if bucket >= from && bucket <= to {
			total += stats.TotalOutflows
		}
	}
	return total
}
