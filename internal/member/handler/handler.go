// Package handler exposes the member registry over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quorum/internal/member/models"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/httputil"
)

// Service defines the member operations the HTTP layer needs.
type Service interface {
	AddMember(ctx context.Context, principal id.Principal, role id.Role) (*models.Member, error)
	RemoveMember(ctx context.Context, principal id.Principal) (*models.Member, error)
	UpdateRole(ctx context.Context, principal id.Principal, role id.Role) (*models.Member, error)
	GetMember(ctx context.Context, principal id.Principal) (*models.Member, error)
	IsAuthorized(ctx context.Context, principal id.Principal) (bool, error)
}

type Handler struct {
	members Service
	logger  *slog.Logger
}

func New(members Service, logger *slog.Logger) *Handler {
	return &Handler{members: members, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/members", h.handleAdd)
	r.Get("/members/{principal}", h.handleGet)
	r.Delete("/members/{principal}", h.handleRemove)
	r.Put("/members/{principal}/role", h.handleUpdateRole)
	r.Get("/members/{principal}/authorized", h.handleAuthorized)
}

type addMemberRequest struct {
	Principal string `json:"principal"`
	Role      string `json:"role"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

type memberResponse struct {
	Principal    id.Principal `json:"principal"`
	Role         id.Role      `json:"role"`
	AddedAt      id.Tick      `json:"added_at"`
	LastActivity id.Tick      `json:"last_activity"`
	Active       bool         `json:"active"`
}

func toMemberResponse(m *models.Member) memberResponse {
	return memberResponse{
		Principal:    m.Principal,
		Role:         m.Role,
		AddedAt:      m.AddedAt,
		LastActivity: m.LastActivity,
		Active:       m.Active,
	}
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[addMemberRequest](w, r, h.logger)
	if !ok {
		return
	}
	principal, err := id.ParsePrincipal(req.Principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	role, err := id.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	member, err := h.members.AddMember(r.Context(), principal, role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toMemberResponse(member))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	principal, err := id.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	member, err := h.members.GetMember(r.Context(), principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toMemberResponse(member))
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	principal, err := id.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	member, err := h.members.RemoveMember(r.Context(), principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toMemberResponse(member))
}

func (h *Handler) handleAuthorized(w http.ResponseWriter, r *http.Request) {
	principal, err := id.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	authorized, err := h.members.IsAuthorized(r.Context(), principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"authorized": authorized})
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	principal, err := id.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[updateRoleRequest](w, r, h.logger)
	if !ok {
		return
	}
	role, err := id.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	member, err := h.members.UpdateRole(r.Context(), principal, role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toMemberResponse(member))
}
