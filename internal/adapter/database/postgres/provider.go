// Package postgres registers the PostgreSQL dialector with the database adapter.
package postgres

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/weatherpipe/internal/adapter/database"
)

// init registers the PostgreSQL dialector factory with the database adapter.
func init() {
	database.RegisterDialector("postgres", func(cfg database.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.Open(connectionString(cfg)), nil
	})
}

// connectionString generates the DSN for PostgreSQL connections.
func connectionString(c database.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.Sslmode)
}
