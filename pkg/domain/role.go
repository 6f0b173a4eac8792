package domain

import dErrors "quorum/pkg/domain-errors"

// Role is a member's position in the vault hierarchy.
// Invariant: the value is one of the three supported roles; the total order
// Admin > Signer > Viewer governs every authorization check.
//
// Usage: construct via ParseRole at trust boundaries to enforce the allowlist;
// direct casting bypasses validation.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSigner Role = "signer"
	RoleViewer Role = "viewer"
)

// roleRank is the single source of truth for the role order. Higher outranks
// lower; values are private so callers must go through AtLeast.
var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleSigner: 2,
	RoleAdmin:  3,
}

// ParseRole constructs a Role from external input.
//
// Errors: returns CodeInvalidRole when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidRole, "role must be admin, signer, or viewer")
	}
	return r, nil
}

// IsValid checks the role is one of the supported values.
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r outranks or equals other in the role order.
// Unknown roles never satisfy any requirement.
func (r Role) AtLeast(other Role) bool {
	rr, ok := roleRank[r]
	if !ok {
		return false
	}
	or, ok := roleRank[other]
	if !ok {
		return false
	}
	return rr >= or
}

func (r Role) String() string { return string(r) }
