// Package domain holds the identity types shared across vault components.
// Typed IDs keep principals, proposals, and payment schedules from being
// accidentally interchanged at compile time.
package domain

import (
	"strconv"
	"strings"

	dErrors "quorum/pkg/domain-errors"
)

// Principal identifies a caller or member. It is supplied by the host's
// authentication layer and treated as opaque text.
type Principal string

// ParsePrincipal validates a principal at a trust boundary.
//
// Errors: CodeInvalidInput when the value is empty or longer than 128 bytes.
func ParsePrincipal(s string) (Principal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal cannot be empty")
	}
	if len(s) > 128 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal must be 128 characters or less")
	}
	return Principal(s), nil
}

func (p Principal) String() string { return string(p) }

// ProposalID is the monotonically increasing proposal identifier.
type ProposalID uint64

// ParseProposalID parses a proposal id from external input.
func ParseProposalID(s string) (ProposalID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid proposal id")
	}
	return ProposalID(n), nil
}

func (p ProposalID) String() string { return strconv.FormatUint(uint64(p), 10) }

// PaymentID identifies a recurring payment schedule.
type PaymentID uint64

// ParsePaymentID parses a payment schedule id from external input.
func ParsePaymentID(s string) (PaymentID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid payment id")
	}
	return PaymentID(n), nil
}

func (p PaymentID) String() string { return strconv.FormatUint(uint64(p), 10) }

// TxID identifies a transaction-history record.
type TxID uint64

// ParseTxID parses a transaction-history id from external input.
func ParseTxID(s string) (TxID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid transaction id")
	}
	return TxID(n), nil
}

// Tick is the external clock counter (block-height equivalent). All expiry,
// spending-window, and analytics-bucket arithmetic is done in ticks.
type Tick int64
