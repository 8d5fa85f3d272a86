package service

import (
	"github.com/google/uuid"

	"github.com/QuestFinTech/ext-market/internal/models"
)

// CanModify decides whether an actor may mutate a resource: allowed for the
// resource owner and for admins, nobody else. Pure; called before every
// extension and version mutation that is not self-registration.
func CanModify(actorID uuid.UUID, roles []models.Role, ownerID uuid.UUID) bool {
	return actorID == ownerID || models.HasRole(roles, models.RoleAdmin)
}
