// Package handler exposes vault administration, deposits, and the
// transaction history over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quorum/internal/history"
	"quorum/internal/treasury"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/httputil"
)

// Service defines the treasury operations the HTTP layer needs.
type Service interface {
	Deposit(ctx context.Context, amount int64) (id.TxID, error)
	Stats(ctx context.Context) (treasury.Stats, error)
	SetPaused(ctx context.Context, paused bool) error
	SetThreshold(ctx context.Context, threshold int) error
	HistoryRecord(ctx context.Context, txID id.TxID) (*history.Record, error)
}

type Handler struct {
	vault  Service
	logger *slog.Logger
}

func New(vault Service, logger *slog.Logger) *Handler {
	return &Handler{vault: vault, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/vault/deposit", h.handleDeposit)
	r.Get("/vault/stats", h.handleStats)
	r.Post("/vault/pause", h.handlePause)
	r.Put("/vault/threshold", h.handleThreshold)
	r.Get("/history/{txID}", h.handleHistory)
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

type depositResponse struct {
	TxID id.TxID `json:"tx_id"`
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

type thresholdRequest struct {
	Threshold int `json:"threshold"`
}

type historyResponse struct {
	ID       id.TxID      `json:"id"`
	Kind     history.Kind `json:"kind"`
	RefID    uint64       `json:"ref_id,omitempty"`
	From     id.Principal `json:"from"`
	To       id.Principal `json:"to"`
	Amount   int64        `json:"amount"`
	Executor id.Principal `json:"executor"`
	Tick     id.Tick      `json:"tick"`
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[depositRequest](w, r, h.logger)
	if !ok {
		return
	}

	txID, err := h.vault.Deposit(r.Context(), req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, depositResponse{TxID: txID})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.vault.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[pauseRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.vault.SetPaused(r.Context(), req.Paused); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleThreshold(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[thresholdRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.vault.SetThreshold(r.Context(), req.Threshold); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	txID, err := id.ParseTxID(chi.URLParam(r, "txID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.vault.HistoryRecord(r.Context(), txID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, historyResponse{
		ID:       record.ID,
		Kind:     record.Kind,
		RefID:    record.RefID,
		From:     record.From,
		To:       record.To,
		Amount:   record.Amount,
		Executor: record.Executor,
		Tick:     record.Tick,
	})
}
