// Package dbtest opens throwaway sqlite databases carrying the service schema.
package dbtest

import (
	"testing"

	"cashloan-backend/internal/domain/loan"
	"cashloan-backend/internal/domain/user"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates an in-memory sqlite DB and migrates every table.
// The pool is pinned to one connection: each new sqlite connection
// would otherwise see its own empty :memory: database.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&user.User{},
		&user.LimitChange{},
		&loan.Loan{},
		&loan.PaymentRequest{},
		&loan.Payment{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}
