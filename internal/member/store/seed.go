package store

import (
	"context"

	"quorum/internal/member/models"
	id "quorum/pkg/domain"
)

// SeedBootstrapAdmin inserts the initial Admin directly, bypassing the
// caller-must-be-admin gate that would otherwise make an empty registry
// unadministrable.
func SeedBootstrapAdmin(s *InMemory, principal id.Principal, now id.Tick) *models.Member {
	admin := &models.Member{
		Principal:    principal,
		Role:         id.RoleAdmin,
		AddedAt:      now,
		LastActivity: now,
		Active:       true,
	}
	_ = s.Create(context.Background(), admin)
	return admin
}
