package history

import (
	"context"
	"sync"

	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
)

// InMemory is the default history store.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.TxID]*Record
	nextID  uint64
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.TxID]*Record)}
}

func (s *InMemory) Append(_ context.Context, record *Record) (id.TxID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	stored := *record
	stored.ID = id.TxID(s.nextID)
	s.records[stored.ID] = &stored
	return stored.ID, nil
}

func (s *InMemory) Get(_ context.Context, txID id.TxID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *InMemory) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID, nil
}
