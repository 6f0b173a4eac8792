// Package audit captures the vault's append-only event trail. Every
// membership change, vote, execution, and cancellation emits one event;
// sinks fan events out to memory (tests, dev) or Kafka (production).
package audit

import (
	"time"

	id "quorum/pkg/domain"
)

// Kind tags the action an event records.
type Kind string

const (
	KindMemberAdded      Kind = "member_added"
	KindMemberRemoved    Kind = "member_removed"
	KindRoleUpdated      Kind = "role_updated"
	KindProposalCreated  Kind = "proposal_created"
	KindVoteCast         Kind = "vote_cast"
	KindProposalExecuted Kind = "proposal_executed"
	KindEmergencyCreated Kind = "emergency_created"
	KindPaymentCreated   Kind = "payment_created"
	KindPaymentExecuted  Kind = "payment_executed"
	KindPaymentCancelled Kind = "payment_cancelled"
	KindPaymentsFrozen   Kind = "payments_frozen"
	KindDeposit          Kind = "deposit"
	KindPauseToggled     Kind = "pause_toggled"
	KindThresholdChanged Kind = "threshold_changed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Kind      Kind         `json:"kind"`
	Actor     id.Principal `json:"actor"`
	Subject   string       `json:"subject,omitempty"`
	Amount    int64        `json:"amount,omitempty"`
	Tick      id.Tick      `json:"tick"`
	Timestamp time.Time    `json:"timestamp"`
}
