// Package dbtest opens migrated SQLite databases for package tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/eventtix-backend/pkg/migrate"
)

// Open returns an isolated in-memory database with the full schema applied.
// The pool is pinned to one connection so shared-cache table locks never
// surface as test flakes.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	return open(t, dsn, 1)
}

// OpenFile returns a file backed database suitable for concurrent writers.
// Transactions take the write lock up front and wait on contention instead
// of failing.
func OpenFile(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eventtix.db")
	dsn := "file:" + path + "?_busy_timeout=10000&_txlock=immediate&_foreign_keys=1&_journal_mode=WAL"
	return open(t, dsn, 8)
}

func open(t testing.TB, dsn string, maxConns int) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(maxConns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.Up(context.Background(), sqlDB, migrate.DialectSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}
