package main

import (
	"database/sql"
	"fmt"

	"cashloan-backend/internal/infrastructure/db"
	"cashloan-backend/migrations"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(db.Up), string(db.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sqlDB, err := sql.Open("mysql", cfg.MySQLDSN())
			if err != nil {
				return fmt.Errorf("open mysql: %w", err)
			}
			defer sqlDB.Close()
			return db.Migrate(sqlDB, migrations.FS, db.Direction(args[0]))
		},
	}
}
