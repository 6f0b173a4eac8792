package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the ledger return
// these (optionally wrapped) so services can translate them into domain
// errors with the right code.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: record already exists (duplicate member, duplicate vote)
// - ErrExpired: record is past its time boundary
// - ErrInvalidState: record in wrong state for the operation (executed
//   proposal, inactive payment schedule)
// - ErrInsufficientFunds: ledger or vault balance cannot cover a transfer
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrExpired           = errors.New("expired")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
