package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/userbridge-backend/pkg/db/models"
)

// UserDTO is the transport shape of an active local user.
type UserDTO struct {
	ID                 uuid.UUID `json:"id"`
	IdentityProviderID uuid.UUID `json:"identity_provider_id"`
	Username           string    `json:"username"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	Email              string    `json:"email"`
	PhoneNumber        string    `json:"phone_number"`
	EmailVerified      bool      `json:"email_verified"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist (or revive) a user.
type CreateUserDTO struct {
	IdentityProviderID uuid.UUID
	Username           string
	FirstName          string
	LastName           string
	Email              string
	PhoneNumber        string
}

// UpdateUserDTO carries a partial update; nil fields are left untouched.
type UpdateUserDTO struct {
	FirstName     *string
	LastName      *string
	Email         *string
	PhoneNumber   *string
	EmailVerified *bool
}

// IsEmpty reports whether no field is set.
func (u UpdateUserDTO) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil && u.PhoneNumber == nil && u.EmailVerified == nil
}

func (u UpdateUserDTO) columns() map[string]any {
	cols := map[string]any{}
	if u.FirstName != nil {
		cols["first_name"] = *u.FirstName
	}
	if u.LastName != nil {
		cols["last_name"] = *u.LastName
	}
	if u.Email != nil {
		cols["email"] = *u.Email
	}
	if u.PhoneNumber != nil {
		cols["phone_number"] = *u.PhoneNumber
	}
	if u.EmailVerified != nil {
		cols["email_verified"] = *u.EmailVerified
	}
	return cols
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:                 u.ID,
		IdentityProviderID: u.IdentityProviderID,
		Username:           u.Username,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		Email:              u.Email,
		PhoneNumber:        u.PhoneNumber,
		EmailVerified:      u.EmailVerified,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		ID:                 uuid.New(),
		IdentityProviderID: c.IdentityProviderID,
		Username:           c.Username,
		FirstName:          c.FirstName,
		LastName:           c.LastName,
		Email:              c.Email,
		PhoneNumber:        c.PhoneNumber,
		EmailVerified:      false,
	}
}
