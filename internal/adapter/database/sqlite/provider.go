// Package sqlite registers the SQLite dialector with the database adapter.
package sqlite

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/weatherpipe/internal/adapter/database"
)

// init registers the SQLite dialector factory with the database adapter.
// This function is automatically called when the package is imported.
func init() {
	database.RegisterDialector("sqlite", func(cfg database.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		// The GORM SQLite dialector expects the file path directly.
		return sqlite.Open(cfg.Database), nil
	})
}
