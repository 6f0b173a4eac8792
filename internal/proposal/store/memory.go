// Package store holds the in-memory proposal and vote tables.
package store

import (
	"context"
	"sync"

	"quorum/internal/proposal/models"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
)

type voteKey struct {
	proposal id.ProposalID
	voter    id.Principal
}

// Memory keeps proposals and votes behind one lock so a ballot and its tally
// update land atomically. IDs are assigned sequentially starting at 1 and
// never reused.
type Memory struct {
	mu        sync.RWMutex
	proposals map[id.ProposalID]*models.Proposal
	votes     map[voteKey]*models.Vote
	nextID    uint64
}

func NewMemory() *Memory {
	return &Memory{
		proposals: make(map[id.ProposalID]*models.Proposal),
		votes:     make(map[voteKey]*models.Vote),
		nextID:    1,
	}
}

// Create assigns the next sequential id and stores a copy.
func (s *Memory) Create(_ context.Context, proposal *models.Proposal) (id.ProposalID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assigned := id.ProposalID(s.nextID)
	s.nextID++
	proposal.ID = assigned

	stored := *proposal
	s.proposals[assigned] = &stored
	return assigned, nil
}

// Find returns a copy of the proposal or sentinel.ErrNotFound.
func (s *Memory) Find(_ context.Context, proposalID id.ProposalID) (*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proposal, ok := s.proposals[proposalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *proposal
	return &copied, nil
}

// FindVote returns a copy of the member's ballot or sentinel.ErrNotFound.
func (s *Memory) FindVote(_ context.Context, proposalID id.ProposalID, voter id.Principal) (*models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vote, ok := s.votes[voteKey{proposal: proposalID, voter: voter}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *vote
	return &copied, nil
}

// CastVote records the ballot and updates the tallies in one step. Returns
// sentinel.ErrNotFound for an unknown proposal and sentinel.ErrConflict when
// the member has already voted; validate runs under the lock and aborts the
// write when it fails.
func (s *Memory) CastVote(_ context.Context, vote *models.Vote, validate func(*models.Proposal) error) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, ok := s.proposals[vote.ProposalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	key := voteKey{proposal: vote.ProposalID, voter: vote.Voter}
	if _, voted := s.votes[key]; voted {
		return nil, sentinel.ErrConflict
	}
	if err := validate(proposal); err != nil {
		return nil, err
	}

	stored := *vote
	s.votes[key] = &stored
	proposal.ApplyVote(vote.Approve)

	copied := *proposal
	return &copied, nil
}

// Execute runs validate then mutate on the proposal under the store lock.
// A validate failure aborts without mutation.
func (s *Memory) Execute(_ context.Context, proposalID id.ProposalID, validate func(*models.Proposal) error, mutate func(*models.Proposal)) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, ok := s.proposals[proposalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(proposal); err != nil {
		return nil, err
	}
	mutate(proposal)

	copied := *proposal
	return &copied, nil
}

// Count returns how many proposals have ever been created.
func (s *Memory) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID - 1, nil
}
