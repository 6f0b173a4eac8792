package models

import (
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
)

// Member is one row of the authoritative role table.
//
// Invariants:
//   - Role is one of the closed role set (Admin > Signer > Viewer)
//   - Members are never physically deleted; Active=false is a tombstone
//   - A member is authorized to propose, vote, and execute iff
//     Active && Role >= Signer
type Member struct {
	Principal    id.Principal `json:"principal"`
	Role         id.Role      `json:"role"`
	AddedAt      id.Tick      `json:"added_at"`
	LastActivity id.Tick      `json:"last_activity"`
	Active       bool         `json:"active"`
}

// New constructs an active member at the given tick.
func New(principal id.Principal, role id.Role, now id.Tick) (*Member, error) {
	if principal == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "principal cannot be empty")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidRole, "role must be admin, signer, or viewer")
	}
	return &Member{
		Principal:    principal,
		Role:         role,
		AddedAt:      now,
		LastActivity: now,
		Active:       true,
	}, nil
}

// IsAuthorized reports whether the member may propose, vote, or execute.
func (m *Member) IsAuthorized() bool {
	return m.Active && m.Role.AtLeast(id.RoleSigner)
}

// CanDeactivate checks the tombstone transition is allowed.
func (m *Member) CanDeactivate() error {
	if !m.Active {
		return dErrors.New(dErrors.CodeNotFound, "member is already inactive")
	}
	return nil
}

// ApplyDeactivation tombstones the member.
func (m *Member) ApplyDeactivation(now id.Tick) {
	m.Active = false
	m.LastActivity = now
}

// ApplyRole replaces the member's role and touches activity.
func (m *Member) ApplyRole(role id.Role, now id.Tick) {
	m.Role = role
	m.LastActivity = now
}

// Touch updates the last-activity marker.
func (m *Member) Touch(now id.Tick) {
	m.LastActivity = now
}
