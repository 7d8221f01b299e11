package users

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:users_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  identity_provider_id TEXT NOT NULL,
  username TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone_number TEXT NOT NULL,
  email_verified INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`
	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active ON users (email) WHERE deleted_at IS NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_phone_number_active ON users (phone_number) WHERE deleted_at IS NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_identity_provider_id_active ON users (identity_provider_id) WHERE deleted_at IS NULL;`,
	}
	require.NoError(t, db.Exec(users).Error)
	for _, stmt := range indexes {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newCreateDTO(n int) CreateUserDTO {
	return CreateUserDTO{
		IdentityProviderID: uuid.New(),
		Username:           fmt.Sprintf("user%d", n),
		FirstName:          "First",
		LastName:           "Last",
		Email:              fmt.Sprintf("user%d@example.com", n),
		PhoneNumber:        fmt.Sprintf("+1555000%04d", n),
	}
}
