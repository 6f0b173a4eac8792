package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"quorum/internal/audit"
	membermetrics "quorum/internal/member/metrics"
	memberstore "quorum/internal/member/store"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/requestcontext"
)

// Registered once: promauto uses the default registry and double registration
// panics.
var testMetrics = membermetrics.New()

type fakePauser struct {
	paused bool
}

func (p *fakePauser) Paused() bool { return p.paused }

type MemberServiceSuite struct {
	suite.Suite
	store   *memberstore.InMemory
	pauser  *fakePauser
	service *Service
}

func TestMemberServiceSuite(t *testing.T) {
	suite.Run(t, new(MemberServiceSuite))
}

func (s *MemberServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = memberstore.New()
	s.pauser = &fakePauser{}
	s.service = NewService(s.store, s.pauser, audit.NewPublisher(64, logger), logger, testMetrics)

	memberstore.SeedBootstrapAdmin(s.store, "admin", 1)
}

// asAdmin returns a context carrying the bootstrap admin at the given tick.
func (s *MemberServiceSuite) asAdmin(tick id.Tick) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), "admin")
	return requestcontext.WithTick(ctx, tick)
}

func (s *MemberServiceSuite) as(caller id.Principal, tick id.Tick) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), caller)
	return requestcontext.WithTick(ctx, tick)
}

func (s *MemberServiceSuite) TestAddMember() {
	s.Run("admin can add a signer", func() {
		member, err := s.service.AddMember(s.asAdmin(10), "alice", id.RoleSigner)
		s.Require().NoError(err)
		s.Equal(id.Tick(10), member.AddedAt)
		s.True(member.Active)
	})

	s.Run("duplicate fails already_exists", func() {
		_, err := s.service.AddMember(s.asAdmin(11), "alice", id.RoleViewer)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
	})

	s.Run("non-admin caller fails unauthorized", func() {
		_, err := s.service.AddMember(s.as("alice", 12), "mallory", id.RoleSigner)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("paused vault rejects mutators", func() {
		s.pauser.paused = true
		defer func() { s.pauser.paused = false }()
		_, err := s.service.AddMember(s.asAdmin(13), "bob", id.RoleSigner)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("invalid role rejected", func() {
		_, err := s.service.AddMember(s.asAdmin(14), "bob", id.Role("owner"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidRole))
	})
}

func (s *MemberServiceSuite) TestRemoveMember() {
	_, err := s.service.AddMember(s.asAdmin(10), "alice", id.RoleSigner)
	s.Require().NoError(err)

	s.Run("tombstones the member", func() {
		member, err := s.service.RemoveMember(s.asAdmin(20), "alice")
		s.Require().NoError(err)
		s.False(member.Active)
	})

	s.Run("second remove fails not_found", func() {
		_, err := s.service.RemoveMember(s.asAdmin(21), "alice")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing member fails not_found", func() {
		_, err := s.service.RemoveMember(s.asAdmin(22), "ghost")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *MemberServiceSuite) TestUpdateRole() {
	_, err := s.service.AddMember(s.asAdmin(10), "alice", id.RoleViewer)
	s.Require().NoError(err)

	s.Run("updates role and touches activity", func() {
		member, err := s.service.UpdateRole(s.asAdmin(30), "alice", id.RoleSigner)
		s.Require().NoError(err)
		s.Equal(id.RoleSigner, member.Role)
		s.Equal(id.Tick(30), member.LastActivity)
	})

	s.Run("missing member fails not_found", func() {
		_, err := s.service.UpdateRole(s.asAdmin(31), "ghost", id.RoleSigner)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *MemberServiceSuite) TestIsAuthorized() {
	ctx := s.asAdmin(10)
	_, err := s.service.AddMember(ctx, "signer", id.RoleSigner)
	s.Require().NoError(err)
	_, err = s.service.AddMember(ctx, "viewer", id.RoleViewer)
	s.Require().NoError(err)

	s.Run("admin and signer are authorized", func() {
		for _, p := range []id.Principal{"admin", "signer"} {
			ok, err := s.service.IsAuthorized(ctx, p)
			s.Require().NoError(err)
			s.True(ok, "expected %s to be authorized", p)
		}
	})

	s.Run("viewer is never authorized", func() {
		ok, err := s.service.IsAuthorized(ctx, "viewer")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("missing member is not authorized and not an error", func() {
		ok, err := s.service.IsAuthorized(ctx, "ghost")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("tombstoned member loses authorization", func() {
		_, err := s.service.RemoveMember(s.asAdmin(40), "signer")
		s.Require().NoError(err)
		ok, err := s.service.IsAuthorized(ctx, "signer")
		s.Require().NoError(err)
		s.False(ok)
	})
}
