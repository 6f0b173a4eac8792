// Package tx provides the serialized transaction boundary for mutating vault
// operations. The engine assumes single-writer semantics: each public
// operation runs to completion against a consistent snapshot with no
// interleaving. Runner is that boundary made explicit.
package tx

import (
	"context"
	"sync"
)

// Runner executes fn as one atomic unit. Implementations must guarantee that
// no other RunInTx callback interleaves with fn.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Serialized is the in-memory Runner: a process-wide mutex. It matches the
// host-ledger model where every contract call is serialized, and keeps
// validate-then-mutate sequences atomic without per-store lock ordering.
type Serialized struct {
	mu sync.Mutex
}

// NewSerialized constructs the process-wide serialized runner.
func NewSerialized() *Serialized {
	return &Serialized{}
}

func (s *Serialized) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}
