// Package database provides SQLite connectivity for relayshell.
//
// The database holds the small amount of state that must survive a
// restart: the schedule toggle (package settings) and the audit trail
// (package audit).
//
// This package manages:
//   - Opening the database file with WAL mode and a busy timeout
//   - Embedded forward-only schema migrations (YYYYMMDD_HHMMSS_name.up.sql)
//   - Health checks
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
