package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/migrate"
)

func TestOrderItemsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_orders.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no orders migration file found")

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS order_items",
		"FOREIGN KEY (parent_id) REFERENCES order_items(id) ON DELETE CASCADE",
		"CHECK (refunded_quantity <= quantity)",
		"ux_order_items_parent_type ON order_items (parent_id, item_type)",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateAcceptsShippedMigrations(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
	require.NoError(t, migrate.ValidateEmbedded())
}

func TestValidateDirRejects(t *testing.T) {
	cases := map[string]struct {
		file string
		body string
	}{
		"bad filename":     {file: "001_bad.sql", body: "-- +goose Up\n-- +goose Down\n"},
		"missing down":     {file: "20260101000000_x.sql", body: "-- +goose Up\nSELECT 1;\n"},
		"down before up":   {file: "20260101000000_x.sql", body: "-- +goose Down\n-- +goose Up\n"},
		"database clock":   {file: "20260101000000_x.sql", body: "-- +goose Up\nUPDATE t SET at = NOW();\n-- +goose Down\n"},
		"postgres serials": {file: "20260101000000_x.sql", body: "-- +goose Up\nCREATE TABLE t (id SERIAL);\n-- +goose Down\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, tc.file), []byte(tc.body), 0o644))
			require.Error(t, migrate.ValidateDir(dir))
		})
	}

	t.Run("empty dir", func(t *testing.T) {
		require.Error(t, migrate.ValidateDir(t.TempDir()))
	})
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	path, err := migrate.CreateSQLMigration(dir, "Add Hold Index", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260301120000_add_hold_index.sql"), path)
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "older", now.Add(-time.Hour))
	require.Error(t, err)
}

func TestDialectFor(t *testing.T) {
	require.Equal(t, migrate.DialectSQLite, migrate.DialectFor("sqlite"))
	require.Equal(t, migrate.DialectSQLite, migrate.DialectFor(" SQLite "))
	require.Equal(t, migrate.DialectPostgres, migrate.DialectFor("postgres"))
	require.Equal(t, migrate.DialectPostgres, migrate.DialectFor(""))
}

func TestUpEnforcesRefundedQuantityCheck(t *testing.T) {
	dsn := "file:migrate_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.Up(context.Background(), sqlDB, migrate.DialectSQLite))

	userID := uuid.NewString()
	orderID := uuid.NewString()
	require.NoError(t, db.Exec(
		`INSERT INTO users (id, email, version, created_at, updated_at) VALUES (?, ?, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		userID, "buyer@example.com",
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO orders (id, user_id, order_date, created_at, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		orderID, userID,
	).Error)

	err = db.Exec(
		`INSERT INTO order_items (id, order_id, item_type, quantity, refunded_quantity, unit_price_in_cents, created_at, updated_at)
		 VALUES (?, ?, 'EventFees', 1, 2, 100, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		uuid.NewString(), orderID,
	).Error
	require.Error(t, err)

	// child lines must reference a parent
	err = db.Exec(
		`INSERT INTO order_items (id, order_id, item_type, quantity, unit_price_in_cents, created_at, updated_at)
		 VALUES (?, ?, 'PerUnitFees', 1, 100, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		uuid.NewString(), orderID,
	).Error
	require.Error(t, err)
}
