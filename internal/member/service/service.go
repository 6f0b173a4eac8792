// Package service orchestrates the member registry: the authoritative role
// table every authorization check in the vault reduces to.
package service

import (
	"context"
	"errors"
	"log/slog"

	"quorum/internal/audit"
	membermetrics "quorum/internal/member/metrics"
	"quorum/internal/member/models"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/sentinel"
	"quorum/pkg/requestcontext"
)

// MemberStore is the registry's persistence port.
type MemberStore interface {
	Create(ctx context.Context, member *models.Member) error
	Find(ctx context.Context, principal id.Principal) (*models.Member, error)
	Execute(ctx context.Context, principal id.Principal, validate func(*models.Member) error, mutate func(*models.Member)) (*models.Member, error)
	ActiveCount(ctx context.Context) (int, error)
}

// Pauser exposes the global pause flag. Mutators fail Unauthorized while the
// vault is paused.
type Pauser interface {
	Paused() bool
}

// Service is the member registry.
type Service struct {
	members MemberStore
	pauser  Pauser
	auditor *audit.Publisher
	logger  *slog.Logger
	metrics *membermetrics.Metrics
}

func NewService(members MemberStore, pauser Pauser, auditor *audit.Publisher, logger *slog.Logger, metrics *membermetrics.Metrics) *Service {
	return &Service{
		members: members,
		pauser:  pauser,
		auditor: auditor,
		logger:  logger,
		metrics: metrics,
	}
}

// AddMember registers a new member. Caller must be an active Admin and the
// vault must not be paused.
func (s *Service) AddMember(ctx context.Context, principal id.Principal, role id.Role) (*models.Member, error) {
	if err := s.requireAdminCaller(ctx); err != nil {
		return nil, err
	}

	member, err := models.New(principal, role, requestcontext.Tick(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.members.Create(ctx, member); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "member already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create member")
	}

	s.metrics.MembersAdded.Inc()
	s.auditor.Emit(ctx, audit.Event{
		Kind:    audit.KindMemberAdded,
		Actor:   requestcontext.Caller(ctx),
		Subject: principal.String(),
		Tick:    requestcontext.Tick(ctx),
	})
	s.logger.InfoContext(ctx, "member added",
		"principal", principal,
		"role", role,
	)
	return member, nil
}

// RemoveMember tombstones a member. The row is kept so history attribution
// survives; fails NotFound when absent or already inactive.
func (s *Service) RemoveMember(ctx context.Context, principal id.Principal) (*models.Member, error) {
	if err := s.requireAdminCaller(ctx); err != nil {
		return nil, err
	}

	now := requestcontext.Tick(ctx)
	member, err := s.members.Execute(ctx, principal,
		func(m *models.Member) error { return m.CanDeactivate() },
		func(m *models.Member) { m.ApplyDeactivation(now) },
	)
	if err != nil {
		return nil, wrapMemberErr(err)
	}

	s.metrics.MembersRemoved.Inc()
	s.auditor.Emit(ctx, audit.Event{
		Kind:    audit.KindMemberRemoved,
		Actor:   requestcontext.Caller(ctx),
		Subject: principal.String(),
		Tick:    now,
	})
	return member, nil
}

// UpdateRole replaces a member's role and touches last-activity.
func (s *Service) UpdateRole(ctx context.Context, principal id.Principal, role id.Role) (*models.Member, error) {
	if err := s.requireAdminCaller(ctx); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidRole, "role must be admin, signer, or viewer")
	}

	now := requestcontext.Tick(ctx)
	member, err := s.members.Execute(ctx, principal,
		func(m *models.Member) error {
			if !m.Active {
				return dErrors.New(dErrors.CodeNotFound, "member is inactive")
			}
			return nil
		},
		func(m *models.Member) { m.ApplyRole(role, now) },
	)
	if err != nil {
		return nil, wrapMemberErr(err)
	}

	s.metrics.RoleUpdates.Inc()
	s.auditor.Emit(ctx, audit.Event{
		Kind:    audit.KindRoleUpdated,
		Actor:   requestcontext.Caller(ctx),
		Subject: principal.String(),
		Tick:    now,
	})
	return member, nil
}

// GetMember looks up a member row.
func (s *Service) GetMember(ctx context.Context, principal id.Principal) (*models.Member, error) {
	member, err := s.members.Find(ctx, principal)
	if err != nil {
		return nil, wrapMemberErr(err)
	}
	return member, nil
}

// IsAuthorized is the pure authorization predicate: active and at least
// Signer. Missing members are simply not authorized, never an error.
func (s *Service) IsAuthorized(ctx context.Context, principal id.Principal) (bool, error) {
	member, err := s.members.Find(ctx, principal)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "member lookup failed")
	}
	return member.IsAuthorized(), nil
}

// HasRole reports whether the member is active with at least the given role.
func (s *Service) HasRole(ctx context.Context, principal id.Principal, role id.Role) (bool, error) {
	member, err := s.members.Find(ctx, principal)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "member lookup failed")
	}
	return member.Active && member.Role.AtLeast(role), nil
}

// ActiveCount reports the number of active members.
func (s *Service) ActiveCount(ctx context.Context) (int, error) {
	return s.members.ActiveCount(ctx)
}

// Touch updates a member's last-activity marker. Best-effort: used by the
// proposal engine on votes and executions.
func (s *Service) Touch(ctx context.Context, principal id.Principal) {
	now := requestcontext.Tick(ctx)
	_, err := s.members.Execute(ctx, principal,
		func(*models.Member) error { return nil },
		func(m *models.Member) { m.Touch(now) },
	)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "failed to touch member activity",
			"principal", principal,
			"error", err,
		)
	}
}

// requireAdminCaller gates every registry mutator: not paused, caller present,
// caller an active Admin.
func (s *Service) requireAdminCaller(ctx context.Context) error {
	if s.pauser.Paused() {
		return dErrors.New(dErrors.CodeUnauthorized, "vault is paused")
	}
	caller := requestcontext.Caller(ctx)
	if caller == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	isAdmin, err := s.HasRole(ctx, caller, id.RoleAdmin)
	if err != nil {
		return err
	}
	if !isAdmin {
		return dErrors.New(dErrors.CodeUnauthorized, "admin role required")
	}
	return nil
}

func wrapMemberErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "member not found")
	}
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "member store failure")
}
