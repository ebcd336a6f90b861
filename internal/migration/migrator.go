// Package migration applies embedded schema migrations to the warehouse store
// using golang-migrate with an iofs source.
package migration

import (
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

// MigrationsTable is the bookkeeping table used by golang-migrate.
const MigrationsTable = "schema_migrations"

// Migrator applies schema migrations for one database dialect.
type Migrator struct {
	db     *gorm.DB
	dbType string
}

// NewMigrator creates a new Migrator instance for the given connection and dialect.
func NewMigrator(db *gorm.DB, dbType string) *Migrator {
	return &Migrator{db: db, dbType: dbType}
}

// getDatabaseDriver retrieves a migrate/v4 driver based on the database type.
func (m *Migrator) getDatabaseDriver() (migratedb.Driver, error) {
	sqlDB, err := m.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	switch m.dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: MigrationsTable})
	case "sqlite":
		return sqlite3.WithInstance(sqlDB, &sqlite3.Config{MigrationsTable: MigrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
	}
}

func (m *Migrator) getMigrateInstance(migrationFS fs.FS, path string) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationFS, path)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}

	dbDriver, err := m.getDatabaseDriver()
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	mInstance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbType, dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mInstance, nil
}

// Up applies all pending migrations found under path in migrationFS.
// An already up-to-date schema is not an error.
func (m *Migrator) Up(migrationFS fs.FS, path string) error {
	logger.Infof("Applying migrations (path: %s, dialect: %s)", path, m.dbType)

	mInstance, err := m.getMigrateInstance(migrationFS, path)
	if err != nil {
		return fmt.Errorf("failed to get migrate instance: %w", err)
	}

	if err := mInstance.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed (dialect: %s, path: %s): %w", m.dbType, path, err)
	}

	logger.Infof("Migrations up to date.")
	return nil
}
