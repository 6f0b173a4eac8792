package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "quorum/pkg/domain-errors"
)

// TestRoleOrder validates the total order over the closed role set.
// Authorization everywhere reduces to Role.AtLeast, so the order itself is
// the invariant worth pinning.
func TestRoleOrder(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleSigner))
	assert.True(t, RoleAdmin.AtLeast(RoleViewer))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))
	assert.True(t, RoleSigner.AtLeast(RoleViewer))
	assert.True(t, RoleSigner.AtLeast(RoleSigner))
	assert.False(t, RoleSigner.AtLeast(RoleAdmin))
	assert.False(t, RoleViewer.AtLeast(RoleSigner))
	assert.False(t, RoleViewer.AtLeast(RoleAdmin))
}

func TestRoleOrder_UnknownRoleNeverAuthorized(t *testing.T) {
	assert.False(t, Role("owner").AtLeast(RoleViewer))
	assert.False(t, RoleAdmin.AtLeast(Role("owner")))
}

func TestParseRole(t *testing.T) {
	t.Run("accepts supported roles", func(t *testing.T) {
		for _, s := range []string{"admin", "signer", "viewer"} {
			r, err := ParseRole(s)
			require.NoError(t, err)
			assert.True(t, r.IsValid())
		}
	})

	t.Run("rejects empty and unknown roles", func(t *testing.T) {
		for _, s := range []string{"", "Admin", "superuser"} {
			_, err := ParseRole(s)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidRole))
		}
	})
}

func TestParsePrincipal(t *testing.T) {
	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParsePrincipal("  ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts plain identifiers", func(t *testing.T) {
		p, err := ParsePrincipal("ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG")
		require.NoError(t, err)
		assert.NotEmpty(t, p.String())
	})
}
