// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"trading-dashboard/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB returns a migrated SQLite database in t.TempDir with foreign keys
// enforced. All access goes through one connection so concurrent callers
// queue instead of failing with SQLITE_BUSY.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", filepath.Join(t.TempDir(), "test.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(model.AllModels()...))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}
