package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/shopflow-backend/pkg/migrate"
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

func TestMigrationsContainSchemas(t *testing.T) {
	cases := map[string][]string{
		"create_catalog_tables": {
			"CREATE TABLE IF NOT EXISTS products",
			"CREATE TABLE IF NOT EXISTS product_variants",
			"stock_quantity integer NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0)",
		},
		"create_carts_tables": {
			"CREATE TABLE IF NOT EXISTS carts",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_owner",
			"version bigint NOT NULL DEFAULT 0",
		},
		"create_orders_tables": {
			"CREATE TABLE IF NOT EXISTS orders",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number",
			"product_snapshot jsonb NOT NULL",
		},
		"create_outbox_tables": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"CREATE TABLE IF NOT EXISTS outbox_dlq",
		},
		"create_notifications_table": {
			"CREATE TABLE IF NOT EXISTS notifications",
		},
	}
	for suffix, checks := range cases {
		content := readMigration(t, suffix)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", suffix, sub)
			}
		}
	}
}

func TestValidateDirAcceptsMigrations(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestValidateDirRejectsBadName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, migrate.ValidateDir(dir))
}

func TestValidateDirRejectsDuplicateVersions(t *testing.T) {
	dir := t.TempDir()
	body := []byte("-- +goose Up\n-- +goose Down\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_b.sql"), body, 0o644))
	require.Error(t, migrate.ValidateDir(dir))
}

func TestValidateDirRequiresDownSection(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_only_up.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644))
	require.Error(t, migrate.ValidateDir(dir))
}

func TestListFilesOrdersByVersion(t *testing.T) {
	files, err := migrate.ListFiles("migrations")
	require.NoError(t, err)
	require.Len(t, files, 5)
	require.Equal(t, "create_catalog_tables", files[0].Name)
	for i := 1; i < len(files); i++ {
		require.Less(t, files[i-1].Version, files[i].Version)
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Order Tags!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_order_tags.sql"), path)
	require.NoError(t, migrate.ValidateDir(dir))
}

func TestCreateSQLMigrationNeverReusesVersion(t *testing.T) {
	dir := t.TempDir()
	first, err := migrate.CreateSQLMigration(dir, "first")
	require.NoError(t, err)
	second, err := migrate.CreateSQLMigration(dir, "second")
	require.NoError(t, err)
	require.NotEqual(t, filepath.Base(first)[:14], filepath.Base(second)[:14])

	files, err := migrate.ListFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "first", files[0].Name)
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	_, err := migrate.CreateSQLMigration(t.TempDir(), "  !! ")
	require.Error(t, err)
}

func TestApplySQLiteIsIdempotent(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, migrate.ApplySQLite(context.Background(), conn))
	require.NoError(t, migrate.ApplySQLite(context.Background(), conn))

	for _, table := range []string{"carts", "cart_items", "orders", "order_items", "outbox_events", "notifications"} {
		require.True(t, conn.Migrator().HasTable(table), table)
	}
}
