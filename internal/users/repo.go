package users

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/userbridge-backend/internal/repo"
	"github.com/angelmondragon/userbridge-backend/pkg/db"
	"github.com/angelmondragon/userbridge-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrAlreadyExists   = errors.New("user already exists")
	ErrUniqueViolation = errors.New("email, phone number or identity provider id already in use")
)

// Repository exposes user-related persistence operations. Lookups only see
// active rows unless stated otherwise.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a new user or revives the soft-deleted row that carries the
// same identity provider id. Revival clears deleted_at, overwrites the
// profile columns and resets email_verified.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	var out *models.User
	err := r.InTx(ctx, func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Unscoped().
			Where("identity_provider_id = ?", dto.IdentityProviderID).
			Order("deleted_at IS NOT NULL").
			Order("updated_at DESC").
			First(&existing).Error
		switch {
		case err == nil && !existing.DeletedAt.Valid:
			return ErrAlreadyExists
		case err == nil:
			revived, err := revive(tx, existing.ID, dto)
			if err != nil {
				return err
			}
			out = revived
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		user := dto.ToModel()
		if err := tx.Create(user).Error; err != nil {
			return translateWriteError(err)
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func revive(tx *gorm.DB, id uuid.UUID, dto CreateUserDTO) (*models.User, error) {
	now := time.Now().UTC()
	err := tx.Unscoped().
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"deleted_at":     nil,
			"username":       dto.Username,
			"first_name":     dto.FirstName,
			"last_name":      dto.LastName,
			"email":          dto.Email,
			"phone_number":   dto.PhoneNumber,
			"email_verified": false,
			"updated_at":     now,
		}).Error
	if err != nil {
		return nil, translateWriteError(err)
	}

	var user models.User
	if err := tx.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads an active user by local id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateReadError(err)
	}
	return &user, nil
}

// FindAnyByID loads a user by local id including soft-deleted rows.
func (r *Repository) FindAnyByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.WithDeleted(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateReadError(err)
	}
	return &user, nil
}

// FindByIdentityProviderID loads the active user mirroring a Keycloak user.
func (r *Repository) FindByIdentityProviderID(ctx context.Context, identityProviderID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "identity_provider_id = ?", identityProviderID).Error; err != nil {
		return nil, translateReadError(err)
	}
	return &user, nil
}

// List returns one page of active users ordered by creation time.
func (r *Repository) List(ctx context.Context, page, pageSize int) ([]models.User, error) {
	users := []models.User{}
	err := r.DB(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Scopes(repo.Page(page, pageSize)).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Update applies the non-nil fields of dto to an active user.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, dto UpdateUserDTO) (*models.User, error) {
	var out models.User
	err := r.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&out, "id = ?", id).Error; err != nil {
			return translateReadError(err)
		}
		if dto.IsEmpty() {
			return nil
		}

		cols := dto.columns()
		cols["updated_at"] = time.Now().UTC()
		if err := tx.Model(&models.User{}).Where("id = ?", id).Updates(cols).Error; err != nil {
			return translateWriteError(err)
		}
		return tx.First(&out, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SoftDelete marks an active user as deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	res := r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"deleted_at": now, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func translateReadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func translateWriteError(err error) error {
	if db.IsUniqueViolation(err, "") {
		return errors.Join(ErrUniqueViolation, err)
	}
	return err
}
