// Package handler exposes recurring payment schedules over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quorum/internal/recurring"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/httputil"
)

// Service defines the recurring payment operations the HTTP layer needs.
type Service interface {
	Create(ctx context.Context, recipient id.Principal, amount int64, description string, frequency id.Tick, totalPayments int64) (*recurring.Payment, error)
	ExecuteDue(ctx context.Context, paymentID id.PaymentID) (id.TxID, error)
	ExecuteBatch(ctx context.Context, paymentIDs []id.PaymentID) []recurring.BatchResult
	Cancel(ctx context.Context, paymentID id.PaymentID) (*recurring.Payment, error)
	FreezeAll(ctx context.Context) (int, error)
	Get(ctx context.Context, paymentID id.PaymentID) (*recurring.Payment, error)
	List(ctx context.Context) ([]*recurring.Payment, error)
}

type Handler struct {
	payments Service
	logger   *slog.Logger
}

func New(payments Service, logger *slog.Logger) *Handler {
	return &Handler{payments: payments, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/recurring", h.handleCreate)
	r.Get("/recurring", h.handleList)
	r.Post("/recurring/batch", h.handleBatch)
	r.Post("/recurring/freeze", h.handleFreeze)
	r.Get("/recurring/{paymentID}", h.handleGet)
	r.Post("/recurring/{paymentID}/execute", h.handleExecute)
	r.Delete("/recurring/{paymentID}", h.handleCancel)
}

type createRequest struct {
	Recipient     string  `json:"recipient"`
	Amount        int64   `json:"amount"`
	Description   string  `json:"description"`
	Frequency     id.Tick `json:"frequency"`
	TotalPayments int64   `json:"total_payments"`
}

type batchRequest struct {
	PaymentIDs []id.PaymentID `json:"payment_ids"`
}

type paymentResponse struct {
	ID             id.PaymentID `json:"id"`
	Recipient      id.Principal `json:"recipient"`
	Amount         int64        `json:"amount"`
	Description    string       `json:"description,omitempty"`
	Frequency      id.Tick      `json:"frequency"`
	TotalPayments  int64        `json:"total_payments"`
	ExecutionCount int64        `json:"execution_count"`
	CreatedBy      id.Principal `json:"created_by"`
	CreatedAt      id.Tick      `json:"created_at"`
	LastExecuted   id.Tick      `json:"last_executed,omitempty"`
	NextDue        id.Tick      `json:"next_due"`
	Active         bool         `json:"active"`
}

type executeResponse struct {
	TxID id.TxID `json:"tx_id"`
}

type freezeResponse struct {
	Frozen int `json:"frozen"`
}

func toPaymentResponse(p *recurring.Payment) paymentResponse {
	return paymentResponse{
		ID:             p.ID,
		Recipient:      p.Recipient,
		Amount:         p.Amount,
		Description:    p.Description,
		Frequency:      p.Frequency,
		TotalPayments:  p.TotalPayments,
		ExecutionCount: p.ExecutionCount,
		CreatedBy:      p.CreatedBy,
		CreatedAt:      p.CreatedAt,
		LastExecuted:   p.LastExecuted,
		NextDue:        p.NextDue,
		Active:         p.Active,
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

	payment, err := h.payments.Create(r.Context(), recipient, req.Amount, req.Description, req.Frequency, req.TotalPayments)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toPaymentResponse(payment))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	payments, err := h.payments.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	responses := make([]paymentResponse, 0, len(payments))
	for _, payment := range payments {
		responses = append(responses, toPaymentResponse(payment))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"payments": responses})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	payment, err := h.payments.Get(r.Context(), paymentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (h *Handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	txID, err := h.payments.ExecuteDue(r.Context(), paymentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, executeResponse{TxID: txID})
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[batchRequest](w, r, h.logger)
	if !ok {
		return
	}

	results := h.payments.ExecuteBatch(r.Context(), req.PaymentIDs)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	payment, err := h.payments.Cancel(r.Context(), paymentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (h *Handler) handleFreeze(w http.ResponseWriter, r *http.Request) {
	frozen, err := h.payments.FreezeAll(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, freezeResponse{Frozen: frozen})
}
