package treasury

import (
	"context"
	"sync"

	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
)

// VaultAccount is the principal that holds treasury funds in the external
// ledger. Payouts are performed as this account.
const VaultAccount = id.Principal("vault")

// Ledger is the external asset-transfer collaborator. Transfer must be
// atomic: it either moves the full amount or moves nothing. A Transfer
// failure aborts the calling operation with no state change.
type Ledger interface {
	Transfer(ctx context.Context, amount int64, from, to id.Principal) error
}

// MemoryLedger is the in-process ledger used by tests and single-node dev
// deployments. Accounts are created on first credit.
type MemoryLedger struct {
	mu       sync.Mutex
	accounts map[id.Principal]int64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{accounts: make(map[id.Principal]int64)}
}

// Seed credits an account directly, bypassing transfer checks. Dev and test
// setup only.
func (l *MemoryLedger) Seed(account id.Principal, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[account] += amount
}

// BalanceOf reports an account's ledger balance.
func (l *MemoryLedger) BalanceOf(account id.Principal) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[account]
}

func (l *MemoryLedger) Transfer(_ context.Context, amount int64, from, to id.Principal) error {
	if amount <= 0 {
		return sentinel.ErrInvalidState
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.accounts[from] < amount {
		return sentinel.ErrInsufficientFunds
	}
	l.accounts[from] -= amount
	l.accounts[to] += amount
	return nil
}
