package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the local mirror of an identity held by Keycloak. Rows are soft
// deleted; uniqueness of email, phone number and identity provider id only
// applies to active rows.
type User struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey"`
	IdentityProviderID uuid.UUID      `gorm:"column:identity_provider_id;type:uuid;not null"`
	Username           string         `gorm:"column:username;not null"`
	FirstName          string         `gorm:"column:first_name;not null"`
	LastName           string         `gorm:"column:last_name;not null"`
	Email              string         `gorm:"column:email;not null"`
	PhoneNumber        string         `gorm:"column:phone_number;not null"`
	EmailVerified      bool           `gorm:"column:email_verified;not null"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt          gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// UserRole links a user to a role.
type UserRole struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	RoleID    uuid.UUID `gorm:"column:role_id;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (UserRole) TableName() string { return "user_roles" }
