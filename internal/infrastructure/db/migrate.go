package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Source opens the embedded migration files as a golang-migrate source.
func Source(files fs.FS) (source.Driver, error) {
	return iofs.New(files, ".")
}

// Migrate applies (up) or rolls back (down) every migration in files against
// a MySQL connection opened with multiStatements=true.
func Migrate(sqlDB *sql.DB, files fs.FS, dir Direction) error {
	if dir != Up && dir != Down {
		return fmt.Errorf("unknown migration direction %q", dir)
	}
	src, err := Source(files)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	driver, err := migratemysql.WithInstance(sqlDB, &migratemysql.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "mysql", driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if dir == Up {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Printf("migrate %s: no change", dir)
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}
	version, dirty, _ := m.Version()
	log.Printf("migrate %s: version=%d dirty=%t", dir, version, dirty)
	return nil
}
