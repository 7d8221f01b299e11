package roles

import (
	"github.com/angelmondragon/userbridge-backend/pkg/db/models"
	"github.com/google/uuid"
)

// CapabilityDTO is a capability granted through a role.
type CapabilityDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// RoleDTO is a role together with its capabilities.
type RoleDTO struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Capabilities []CapabilityDTO `json:"capabilities"`
}

// RoleWithCapabilities is the repository view of a role.
type RoleWithCapabilities struct {
	Role         models.Role
	Capabilities []models.Capability
}

// FromModel maps a repository role onto its API shape.
func FromModel(r RoleWithCapabilities) RoleDTO {
	caps := make([]CapabilityDTO, 0, len(r.Capabilities))
	for _, c := range r.Capabilities {
		caps = append(caps, CapabilityDTO{ID: c.ID, Name: c.Name, Description: c.Description})
	}
	return RoleDTO{
		ID:           r.Role.ID,
		Name:         r.Role.Name,
		Description:  r.Role.Description,
		Capabilities: caps,
	}
}
