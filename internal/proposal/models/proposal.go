// Package models holds the proposal aggregate and its transition rules.
package models

import (
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
)

// Kind distinguishes the two proposal flavors. Emergency proposals snapshot
// a raised threshold and get a longer fixed expiry window.
type Kind string

const (
	KindStandard  Kind = "standard"
	KindEmergency Kind = "emergency"
)

// Proposal is a pending withdrawal awaiting enough approvals.
//
// ThresholdRequired is snapshotted at creation and never re-read from vault
// state: raising or lowering the global threshold later does not move the
// bar for proposals already in flight.
type Proposal struct {
	ID                id.ProposalID
	Kind              Kind
	Proposer          id.Principal
	Recipient         id.Principal
	Amount            int64
	Description       string
	VotesFor          int
	VotesAgainst      int
	ThresholdRequired int
	Executed          bool
	CreatedAt         id.Tick
	ExpiresAt         id.Tick
}

// Vote is one member's write-once ballot on a proposal.
type Vote struct {
	ProposalID id.ProposalID
	Voter      id.Principal
	Approve    bool
	CastAt     id.Tick
}

// Expired reports whether the voting window has closed. Expiry is inclusive:
// a vote at exactly ExpiresAt is too late.
func (p *Proposal) Expired(now id.Tick) bool {
	return now >= p.ExpiresAt
}

// CanVote checks the voting preconditions that live on the proposal itself.
// Caller-side checks (membership, double voting) belong to the service and
// store.
func (p *Proposal) CanVote(now id.Tick) error {
	if p.Executed {
		return dErrors.New(dErrors.CodeExecutionFailed, "proposal already executed")
	}
	if p.Expired(now) {
		return dErrors.New(dErrors.CodeExpired, "voting window has closed")
	}
	return nil
}

// CanExecute checks every proposal-local execution precondition against the
// given tick and treasury balance.
func (p *Proposal) CanExecute(now id.Tick, balance int64) error {
	if p.Executed {
		return dErrors.New(dErrors.CodeExecutionFailed, "proposal already executed")
	}
	if p.Expired(now) {
		return dErrors.New(dErrors.CodeExpired, "proposal has expired")
	}
	if p.VotesFor < p.ThresholdRequired {
		return dErrors.New(dErrors.CodeInsufficientVotes, "approval threshold not met")
	}
	if balance < p.Amount {
		return dErrors.New(dErrors.CodeInvalidAmount, "insufficient treasury balance")
	}
	return nil
}

// ApplyVote folds one ballot into the tallies.
func (p *Proposal) ApplyVote(approve bool) {
	if approve {
		p.VotesFor++
	} else {
		p.VotesAgainst++
	}
}

// MarkExecuted transitions the proposal to its terminal state.
func (p *Proposal) MarkExecuted() {
	p.Executed = true
}
