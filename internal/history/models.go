// Package history holds the append-only transaction record table. Every fund
// movement (deposits, executed proposals, recurring payouts) appends exactly
// one record here.
package history

import (
	"context"
	"time"

	id "quorum/pkg/domain"
)

// Kind distinguishes the path that moved the funds.
type Kind string

const (
	KindDeposit   Kind = "deposit"
	KindProposal  Kind = "proposal"
	KindRecurring Kind = "recurring"
)

// Record is one fund movement.
// Invariant: immutable once appended; IDs are assigned sequentially by the
// store and never reused.
type Record struct {
	ID        id.TxID
	Kind      Kind
	RefID     uint64 // proposal or payment schedule id; zero for deposits
	From      id.Principal
	To        id.Principal
	Amount    int64
	Executor  id.Principal
	Tick      id.Tick
	CreatedAt time.Time
}

// Store is the transaction-history port.
type Store interface {
	// Append assigns the next sequential id, stores the record, and returns
	// the assigned id.
	Append(ctx context.Context, record *Record) (id.TxID, error)
	// Get returns sentinel.ErrNotFound when the record does not exist.
	Get(ctx context.Context, txID id.TxID) (*Record, error)
	// Count returns the total number of records.
	Count(ctx context.Context) (uint64, error)
}
