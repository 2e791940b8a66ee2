// Package db holds the embedded feedback schema and the golang-migrate
// wrapper used by the service and portfolioctl.
package db

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joeyportfolio/portfolio/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// NotifyChannel is the LISTEN/NOTIFY channel the insert trigger posts to.
const NotifyChannel = "feedback_inserts"

const schemaFile = "migrations/000001_create_feedback.up.sql"

// SchemaSQL returns the idempotent statement batch that creates the
// feedback table, its policies and its insert trigger.
func SchemaSQL() string {
	data, err := migrationFiles.ReadFile(schemaFile)
	if err != nil {
		// Embedded at build time; a missing file is a build defect.
		panic(fmt.Sprintf("db: missing embedded schema %s: %v", schemaFile, err))
	}
	return string(data)
}

func newMigrate(dbURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	// The pgx v5 driver registers the pgx5:// scheme.
	m, err := migrate.NewWithSourceInstance("iofs", source, convertToPgx5URL(dbURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// RunMigrations applies all pending migrations. A dirty state left by an
// interrupted run is reset to the previous version and retried.
func RunMigrations(dbURL string) error {
	log := logger.GetLogger()

	m, err := newMigrate(dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Infow("No migrations applied yet")
	case err != nil:
		return fmt.Errorf("failed to read migration version: %w", err)
	case dirty:
		clean := int(version) - 1
		if clean < 1 {
			clean = -1
		}
		log.Infow("Dirty migration state detected, resetting to retry",
			"dirtyVersion", version,
			"resettingTo", clean)
		if err := m.Force(clean); err != nil {
			return fmt.Errorf("failed to reset dirty migration: %w", err)
		}
	default:
		log.Infow("Current migration version", "version", version)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("Database is up to date, no migrations to apply")
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err = m.Version()
	if err != nil {
		log.Infow("Migrations applied successfully")
	} else {
		log.Infow("Migrations applied successfully", "currentVersion", version, "dirty", dirty)
	}
	return nil
}

// RollbackMigrations reverts every applied migration.
func RollbackMigrations(dbURL string) error {
	m, err := newMigrate(dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback failed: %w", err)
	}
	logger.GetLogger().Info("Migrations rolled back")
	return nil
}

// MigrationVersion reports the applied version. ok is false when nothing
// has been applied.
func MigrationVersion(dbURL string) (version uint, dirty bool, ok bool, err error) {
	m, err := newMigrate(dbURL)
	if err != nil {
		return 0, false, false, err
	}
	defer m.Close()

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, dirty, true, nil
}

func convertToPgx5URL(dbURL string) string {
	for _, scheme := range []string{"postgresql:", "postgres:"} {
		if strings.HasPrefix(dbURL, scheme) {
			return "pgx5:" + strings.TrimPrefix(dbURL, scheme)
		}
	}
	return dbURL
}
