package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tutrabajo/apiserver/config"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrateUp applies all pending up migrations for the configured driver.
func MigrateUp(cfg config.DatabaseConfig) error {
	return runMigrations(cfg, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up failed: %w", err)
		}
		return nil
	})
}

// MigrateDown rolls back steps migrations, or all of them when steps < 1.
func MigrateDown(cfg config.DatabaseConfig, steps int) error {
	return runMigrations(cfg, func(m *migrate.Migrate) error {
		var err error
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		return nil
	})
}

// runMigrations opens a dedicated handle because closing the migrator closes
// the database it was given.
func runMigrations(cfg config.DatabaseConfig, fn func(m *migrate.Migrate) error) error {
	driverName := Driver(cfg)
	sourceDir := "migrations/postgres"
	if driverName == DriverSQLite {
		sourceDir = "migrations/sqlite"
	}

	source, err := iofs.New(migrationsFS, sourceDir)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	conn, err := open(cfg)
	if err != nil {
		return err
	}

	var target database.Driver
	var targetName string
	switch driverName {
	case DriverSQLite:
		target, err = sqlite.WithInstance(conn, &sqlite.Config{})
		targetName = "sqlite"
	default:
		target, err = postgres.WithInstance(conn, &postgres.Config{})
		targetName = "postgres"
	}
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("init migration driver failed: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, targetName, target)
	if err != nil {
		_ = target.Close()
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer func() {
		_, _ = migrator.Close()
		_ = conn.Close()
	}()

	return fn(migrator)
}
