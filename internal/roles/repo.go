package roles

import (
	"context"

	"github.com/angelmondragon/userbridge-backend/internal/repo"
	"github.com/angelmondragon/userbridge-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads roles and the capabilities they grant.
type Repository struct {
	repo.Base
}

// NewRepository binds a roles repository to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

type capabilityRow struct {
	RoleID      uuid.UUID
	ID          uuid.UUID
	Name        string
	Description string
}

// List returns every active role ordered by name.
func (r *Repository) List(ctx context.Context) ([]RoleWithCapabilities, error) {
	var roles []models.Role
	if err := r.DB(ctx).Order("name ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return r.attachCapabilities(ctx, roles)
}

// ListForUser returns the active roles assigned to a user.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]RoleWithCapabilities, error) {
	var roles []models.Role
	err := r.DB(ctx).
		Joins("JOIN user_roles ur ON ur.role_id = roles.id").
		Where("ur.user_id = ?", userID).
		Order("roles.name ASC").
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return r.attachCapabilities(ctx, roles)
}

func (r *Repository) attachCapabilities(ctx context.Context, roles []models.Role) ([]RoleWithCapabilities, error) {
	out := make([]RoleWithCapabilities, 0, len(roles))
	if len(roles) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, 0, len(roles))
	for _, role := range roles {
		ids = append(ids, role.ID)
	}

	var rows []capabilityRow
	err := r.DB(ctx).
		Table("role_capabilities rc").
		Select("rc.role_id, c.id, c.name, c.description").
		Joins("JOIN capabilities c ON c.id = rc.capability_id").
		Where("rc.role_id IN ?", ids).
		Order("c.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byRole := make(map[uuid.UUID][]models.Capability, len(roles))
	for _, row := range rows {
		byRole[row.RoleID] = append(byRole[row.RoleID], models.Capability{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
		})
	}
	for _, role := range roles {
		out = append(out, RoleWithCapabilities{Role: role, Capabilities: byRole[role.ID]})
	}
	return out, nil
}
