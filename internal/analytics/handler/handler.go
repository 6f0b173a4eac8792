// Package handler exposes treasury analytics over HTTP. All endpoints are
// read-only.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"quorum/internal/analytics"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/httputil"
)

// Service defines the analytics queries the HTTP layer needs.
type Service interface {
	PeriodStats(ctx context.Context, bucket int64) (*analytics.PeriodStats, error)
	CurrentPeriod(ctx context.Context) (*analytics.PeriodStats, error)
	BurnRate(ctx context.Context) int64
	HealthScore(ctx context.Context) int64
	ActivitySummary(ctx context.Context, member id.Principal) (*analytics.Summary, error)
}

type Handler struct {
	analytics Service
	logger    *slog.Logger
}

func New(analytics Service, logger *slog.Logger) *Handler {
	return &Handler{analytics: analytics, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/analytics/periods/current", h.handleCurrentPeriod)
	r.Get("/analytics/periods/{bucket}", h.handlePeriod)
	r.Get("/analytics/burn-rate", h.handleBurnRate)
	r.Get("/analytics/health", h.handleHealth)
	r.Get("/analytics/members/{principal}", h.handleMemberSummary)
}

type burnRateResponse struct {
	BurnRate int64 `json:"burn_rate"`
}

type healthResponse struct {
	Score int64 `json:"score"`
}

func (h *Handler) handlePeriod(w http.ResponseWriter, r *http.Request) {
	bucket, err := strconv.ParseInt(chi.URLParam(r, "bucket"), 10, 64)
	if err != nil || bucket < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid period index"))
		return
	}

	stats, err := h.analytics.PeriodStats(r.Context(), bucket)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleCurrentPeriod(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.CurrentPeriod(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleBurnRate(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, burnRateResponse{BurnRate: h.analytics.BurnRate(r.Context())})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, healthResponse{Score: h.analytics.HealthScore(r.Context())})
}

func (h *Handler) handleMemberSummary(w http.ResponseWriter, r *http.Request) {
	principal, err := id.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	summary, err := h.analytics.ActivitySummary(r.Context(), principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}
