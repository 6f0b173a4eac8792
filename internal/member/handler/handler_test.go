package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quorum/internal/member/models"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
)

type stubService struct {
	addFn    func(ctx context.Context, principal id.Principal, role id.Role) (*models.Member, error)
	removeFn func(ctx context.Context, principal id.Principal) (*models.Member, error)
	updateFn func(ctx context.Context, principal id.Principal, role id.Role) (*models.Member, error)
	getFn    func(ctx context.Context, principal id.Principal) (*models.Member, error)
	authFn   func(ctx context.Context, principal id.Principal) (bool, error)
}

func (s stubService) AddMember(ctx context.Context, principal id.Principal, role id.Role) (*models.Member, error) {
	return s.addFn(ctx, principal, role)
}

func (s stubService) RemoveMember(ctx context.Context, principal id.Principal) (*models.Member, error) {
	return s.removeFn(ctx, principal)
}

func (s stubService) UpdateRole(ctx context.Context, principal id.Principal, role id.Role) (*models.Member, error) {
	return s.updateFn(ctx, principal, role)
}

func (s stubService) GetMember(ctx context.Context, principal id.Principal) (*models.Member, error) {
	return s.getFn(ctx, principal)
}

func (s stubService) IsAuthorized(ctx context.Context, principal id.Principal) (bool, error) {
	return s.authFn(ctx, principal)
}

func newTestRouter(svc Service) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r
}

func TestHandleAddMember(t *testing.T) {
	svc := stubService{
		addFn: func(_ context.Context, principal id.Principal, role id.Role) (*models.Member, error) {
			assert.Equal(t, id.Principal("bob"), principal)
			assert.Equal(t, id.RoleSigner, role)
			return &models.Member{Principal: principal, Role: role, AddedAt: 42, Active: true}, nil
		},
	}

	body, err := json.Marshal(addMemberRequest{Principal: "bob", Role: "signer"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/members", bytes.NewReader(body))
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp memberResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, id.Principal("bob"), resp.Principal)
	assert.Equal(t, id.RoleSigner, resp.Role)
	assert.True(t, resp.Active)
}

func TestHandleAddMember_InvalidRole(t *testing.T) {
	svc := stubService{
		addFn: func(context.Context, id.Principal, id.Role) (*models.Member, error) {
			t.Fatal("service must not be called for an invalid role")
			return nil, nil
		},
	}

	body, err := json.Marshal(addMemberRequest{Principal: "bob", Role: "overlord"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/members", bytes.NewReader(body))
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAddMember_Unauthorized(t *testing.T) {
	svc := stubService{
		addFn: func(context.Context, id.Principal, id.Role) (*models.Member, error) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "admin role required")
		},
	}

	body, err := json.Marshal(addMemberRequest{Principal: "bob", Role: "signer"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/members", bytes.NewReader(body))
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unauthorized", resp["error"])
}

func TestHandleGetMember_NotFound(t *testing.T) {
	svc := stubService{
		getFn: func(context.Context, id.Principal) (*models.Member, error) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/members/ghost", nil)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleRemoveMember(t *testing.T) {
	svc := stubService{
		removeFn: func(_ context.Context, principal id.Principal) (*models.Member, error) {
			assert.Equal(t, id.Principal("bob"), principal)
			return &models.Member{Principal: principal, Role: id.RoleSigner, Active: false}, nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/members/bob", nil)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp memberResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Active)
}

func TestHandleAuthorized(t *testing.T) {
	svc := stubService{
		authFn: func(_ context.Context, principal id.Principal) (bool, error) {
			assert.Equal(t, id.Principal("bob"), principal)
			return true, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/members/bob/authorized", nil)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["authorized"])
}

func TestHandleUpdateRole(t *testing.T) {
	svc := stubService{
		updateFn: func(_ context.Context, principal id.Principal, role id.Role) (*models.Member, error) {
			assert.Equal(t, id.RoleAdmin, role)
			return &models.Member{Principal: principal, Role: role, Active: true}, nil
		},
	}

	body, err := json.Marshal(updateRoleRequest{Role: "admin"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/members/bob/role", bytes.NewReader(body))
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp memberResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, id.RoleAdmin, resp.Role)
}
