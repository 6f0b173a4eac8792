// Package handler exposes spending-limit administration over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quorum/internal/spendlimit"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/httputil"
)

// Service defines the spending-limit operations the HTTP layer needs.
type Service interface {
	SetLimits(ctx context.Context, member id.Principal, daily, monthly, total int64) (*spendlimit.Limits, error)
	Get(ctx context.Context, member id.Principal) (*spendlimit.Limits, error)
	RemainingDaily(ctx context.Context, member id.Principal) (int64, error)
}

type Handler struct {
	limits Service
	logger *slog.Logger
}

func New(limits Service, logger *slog.Logger) *Handler {
	return &Handler{limits: limits, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Put("/limits/{principal}", h.handleSet)
	r.Get("/limits/{principal}", h.handleGet)
	r.Get("/limits/{principal}/remaining", h.handleRemaining)
}

type setLimitsRequest struct {
	Daily   int64 `json:"daily"`
	Monthly int64 `json:"monthly"`
	Total   int64 `json:"total"`
}

type limitsResponse struct {
	Principal    id.Principal `json:"principal"`
	DailyLimit   int64        `json:"daily_limit"`
	MonthlyLimit int64        `json:"monthly_limit"`
	TotalLimit   int64        `json:"total_limit"`
	DailySpent   int64        `json:"daily_spent"`
	MonthlySpent int64        `json:"monthly_spent"`
	TotalSpent   int64        `json:"total_spent"`
}

type remainingResponse struct {
	Remaining int64 `json:"remaining_daily"`
}

func toLimitsResponse(l *spendlimit.Limits) limitsResponse {
	return limitsResponse{
		Principal:    l.Principal,
		DailyLimit:   l.DailyLimit,
		MonthlyLimit: l.MonthlyLimit,
		TotalLimit:   l.TotalLimit,
		DailySpent:   l.DailySpent,
		MonthlySpent: l.MonthlySpent,
		TotalSpent:   l.TotalSpent,
	}
}

func (h *Handler) handleSet(w http.ResponseWriter, r *http.Request) {
	principal, err := id.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[setLimitsRequest](w, r, h.logger)
	if !ok {
		return
	}

	limits, err := h.limits.SetLimits(r.Context(), principal, req.Daily, req.Monthly, req.Total)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLimitsResponse(limits))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	principal, err := id.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	limits, err := h.limits.Get(r.Context(), principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLimitsResponse(limits))
}

func (h *Handler) handleRemaining(w http.ResponseWriter, r *http.Request) {
	principal, err := id.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	remaining, err := h.limits.RemainingDaily(r.Context(), principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, remainingResponse{Remaining: remaining})
}
