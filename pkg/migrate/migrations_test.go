package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/userbridge-backend/pkg/migrate"
	"go.uber.org/multierr"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestUsersMigrationContainsPartialUniqueIndexes(t *testing.T) {
	content := readMigration(t, "create_users_table")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS users",
		"identity_provider_id uuid NOT NULL",
		"email_verified boolean NOT NULL DEFAULT false",
		"deleted_at timestamptz NULL",
		"idx_users_email_active\n    ON users (email) WHERE deleted_at IS NULL",
		"idx_users_phone_number_active\n    ON users (phone_number) WHERE deleted_at IS NULL",
		"idx_users_identity_provider_id_active\n    ON users (identity_provider_id) WHERE deleted_at IS NULL",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestRBACMigrationContainsJoinTables(t *testing.T) {
	content := readMigration(t, "create_rbac_tables")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS roles",
		"CREATE TABLE IF NOT EXISTS capabilities",
		"CREATE TABLE IF NOT EXISTS role_capabilities",
		"CREATE TABLE IF NOT EXISTS user_roles",
		"REFERENCES users (id) ON DELETE CASCADE",
		"REFERENCES capabilities (id) ON DELETE CASCADE",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("expected shipped migrations to validate: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "add_users.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to be rejected")
	}
}

func TestCreateSQLMigrationWritesGooseTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC)

	path, err := migrate.CreateSQLMigration(dir, "Add User Roles!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20250302093000_add_user_roles.sql" {
		t.Fatalf("unexpected migration path %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}

	if _, err := migrate.CreateSQLMigration(dir, "add user roles", now); err == nil {
		t.Fatal("expected an existing migration to be preserved")
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!", now); err == nil {
		t.Fatal("expected an empty sanitized name to be rejected")
	}
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"20250301120000_no_down.sql":    "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose StatementEnd\n",
		"20250301120000_duplicate.sql":  "-- +goose Up\n-- +goose Down\n",
		"20251399000000_bad_month.sql":  "-- +goose Up\n-- +goose Down\n",
		"20250301130000_unbalanced.sql": "-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	err := migrate.ValidateDir(dir)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if got := len(multierr.Errors(err)); got != 4 {
		t.Fatalf("expected 4 problems, got %d: %v", got, err)
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := migrate.ParseVersion("20250301120500"); err != nil || v != 20250301120500 {
		t.Fatalf("unexpected parse result %d %v", v, err)
	}
	for _, raw := range []string{"", "2025", "20251301120000", "abc"} {
		if _, err := migrate.ParseVersion(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
