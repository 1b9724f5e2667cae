// Package database handles the history database connection and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL or SQLite connections
// based on the application's configuration.
//
// # Connect
//
// Connect opens the configured driver, applies pool settings and pings the
// server. SQLite databases are limited to a single connection.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns let the history recorder verify that the
// tables it writes to carry the columns it expects, which catches databases
// shared with an older release.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Warn("History disabled", zap.Error(err))
//	}
//
//	missing, err := database.MissingColumns(db, "runs", []string{"run_id", "state"})
package database
