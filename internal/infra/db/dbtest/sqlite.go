// Package dbtest はテスト用のインメモリSQLiteを用意する。
package dbtest

import (
	"testing"

	"grocery/internal/infra/db"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// マイグレーション済みのインメモリDBを返す
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := db.Config()
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	// 外部キー（ON DELETE CASCADE / SET NULL）を効かせる
	gdb, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	//接続ごとに別DBになるので1本に固定
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}
