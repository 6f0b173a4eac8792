package recurring

import (
	"context"
	"sort"
	"sync"

	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
)

// InMemory holds the payment schedule table. IDs are sequential from 1 and
// never reused.
type InMemory struct {
	mu       sync.RWMutex
	payments map[id.PaymentID]*Payment
	nextID   uint64
}

func NewInMemory() *InMemory {
	return &InMemory{
		payments: make(map[id.PaymentID]*Payment),
		nextID:   1,
	}
}

// Create assigns the next sequential id and stores a copy.
func (s *InMemory) Create(_ context.Context, payment *Payment) (id.PaymentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assigned := id.PaymentID(s.nextID)
	s.nextID++
	payment.ID = assigned

	stored := *payment
	s.payments[assigned] = &stored
	return assigned, nil
}

// Find returns a copy of the schedule or sentinel.ErrNotFound.
func (s *InMemory) Find(_ context.Context, paymentID id.PaymentID) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payment, ok := s.payments[paymentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *payment
	return &copied, nil
}

// Execute runs validate then mutate on the schedule under the store lock.
// A validate failure aborts without mutation.
func (s *InMemory) Execute(_ context.Context, paymentID id.PaymentID, validate func(*Payment) error, mutate func(*Payment)) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment, ok := s.payments[paymentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(payment); err != nil {
		return nil, err
	}
	mutate(payment)

	copied := *payment
	return &copied, nil
}

// List returns copies of every schedule ordered by id.
func (s *InMemory) List(_ context.Context) ([]*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payments := make([]*Payment, 0, len(s.payments))
	for _, payment := range s.payments {
		copied := *payment
		payments = append(payments, &copied)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	return payments, nil
}

// ListDue returns copies of every schedule owing a payout at the given tick,
// ordered by id.
func (s *InMemory) ListDue(ctx context.Context, now id.Tick) ([]*Payment, error) {
	payments, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	due := payments[:0]
	for _, payment := range payments {
		if payment.Due(now) {
			due = append(due, payment)
		}
	}
	return due, nil
}
