// Package handler exposes the proposal lifecycle over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quorum/internal/proposal/models"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/httputil"
)

// Service defines the proposal operations the HTTP layer needs.
type Service interface {
	Create(ctx context.Context, recipient id.Principal, amount int64, description string, expiryDelta id.Tick) (*models.Proposal, error)
	EmergencyWithdrawal(ctx context.Context, recipient id.Principal, amount int64, reason string) (*models.Proposal, error)
	Vote(ctx context.Context, proposalID id.ProposalID, approve bool) (*models.Proposal, error)
	Execute(ctx context.Context, proposalID id.ProposalID) (id.TxID, error)
	IsExecutable(ctx context.Context, proposalID id.ProposalID) (bool, string, error)
	Get(ctx context.Context, proposalID id.ProposalID) (*models.Proposal, error)
	GetVote(ctx context.Context, proposalID id.ProposalID, voter id.Principal) (*models.Vote, error)
}

type Handler struct {
	proposals Service
	logger    *slog.Logger
}

func New(proposals Service, logger *slog.Logger) *Handler {
	return &Handler{proposals: proposals, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/proposals", h.handleCreate)
	r.Post("/proposals/emergency", h.handleEmergency)
	r.Get("/proposals/{proposalID}", h.handleGet)
	r.Post("/proposals/{proposalID}/vote", h.handleVote)
	r.Post("/proposals/{proposalID}/execute", h.handleExecute)
	r.Get("/proposals/{proposalID}/executable", h.handleExecutable)
	r.Get("/proposals/{proposalID}/votes/{voter}", h.handleGetVote)
}

type createRequest struct {
	Recipient   string  `json:"recipient"`
	Amount      int64   `json:"amount"`
	Description string  `json:"description"`
	ExpiryDelta id.Tick `json:"expiry_delta"`
}

type emergencyRequest struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
}

type voteRequest struct {
	Approve bool `json:"approve"`
}

type proposalResponse struct {
	ID                id.ProposalID `json:"id"`
	Kind              models.Kind   `json:"kind"`
	Proposer          id.Principal  `json:"proposer"`
	Recipient         id.Principal  `json:"recipient"`
	Amount            int64         `json:"amount"`
	Description       string        `json:"description,omitempty"`
	VotesFor          int           `json:"votes_for"`
	VotesAgainst      int           `json:"votes_against"`
	ThresholdRequired int           `json:"threshold_required"`
	Executed          bool          `json:"executed"`
	CreatedAt         id.Tick       `json:"created_at"`
	ExpiresAt         id.Tick       `json:"expires_at"`
}

type executeResponse struct {
	TxID id.TxID `json:"tx_id"`
}

type executableResponse struct {
	Executable bool   `json:"executable"`
	Reason     string `json:"reason,omitempty"`
}

type voteResponse struct {
	ProposalID id.ProposalID `json:"proposal_id"`
	Voter      id.Principal  `json:"voter"`
	Approve    bool          `json:"approve"`
	CastAt     id.Tick       `json:"cast_at"`
}

func toProposalResponse(p *models.Proposal) proposalResponse {
	return proposalResponse{
		ID:                p.ID,
		Kind:              p.Kind,
		Proposer:          p.Proposer,
		Recipient:         p.Recipient,
		Amount:            p.Amount,
		Description:       p.Description,
		VotesFor:          p.VotesFor,
		VotesAgainst:      p.VotesAgainst,
		ThresholdRequired: p.ThresholdRequired,
		Executed:          p.Executed,
		CreatedAt:         p.CreatedAt,
		ExpiresAt:         p.ExpiresAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[createRequest](w, r, h.logger)
	if !ok {
		return
	}
	recipient, err := id.ParsePrincipal(req.Recipient)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	proposal, err := h.proposals.Create(r.Context(), recipient, req.Amount, req.Description, req.ExpiryDelta)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toProposalResponse(proposal))
}

func (h *Handler) handleEmergency(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[emergencyRequest](w, r, h.logger)
	if !ok {
		return
	}
	recipient, err := id.ParsePrincipal(req.Recipient)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	proposal, err := h.proposals.EmergencyWithdrawal(r.Context(), recipient, req.Amount, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toProposalResponse(proposal))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	proposalID, err := id.ParseProposalID(chi.URLParam(r, "proposalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	proposal, err := h.proposals.Get(r.Context(), proposalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProposalResponse(proposal))
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	proposalID, err := id.ParseProposalID(chi.URLParam(r, "proposalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[voteRequest](w, r, h.logger)
	if !ok {
		return
	}

	proposal, err := h.proposals.Vote(r.Context(), proposalID, req.Approve)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProposalResponse(proposal))
}

func (h *Handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	proposalID, err := id.ParseProposalID(chi.URLParam(r, "proposalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	txID, err := h.proposals.Execute(r.Context(), proposalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, executeResponse{TxID: txID})
}

func (h *Handler) handleExecutable(w http.ResponseWriter, r *http.Request) {
	proposalID, err := id.ParseProposalID(chi.URLParam(r, "proposalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	executable, reason, err := h.proposals.IsExecutable(r.Context(), proposalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, executableResponse{Executable: executable, Reason: reason})
}

func (h *Handler) handleGetVote(w http.ResponseWriter, r *http.Request) {
	proposalID, err := id.ParseProposalID(chi.URLParam(r, "proposalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	voter, err := id.ParsePrincipal(chi.URLParam(r, "voter"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	vote, err := h.proposals.GetVote(r.Context(), proposalID, voter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, voteResponse{
		ProposalID: vote.ProposalID,
		Voter:      vote.Voter,
		Approve:    vote.Approve,
		CastAt:     vote.CastAt,
	})
}
