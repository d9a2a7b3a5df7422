// Package database provides SQLite connectivity for acecore.
//
// This package manages:
//   - The database connection, with WAL mode for concurrent reads
//   - Schema migrations loaded from an fs.FS
//   - Connection lifecycle and health checks
//
// Two tables live here: variables (the persisted variable store) and
// ace_state_history (snapshots of reconciled state).
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is restricted to 0600
//
// Usage:
//
//	db, err := database.Open(database.FromConfig(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration Strategy:
//
// Migrations are additive. Each YYYYMMDD_HHMMSS_name.up.sql has a matching
// .down.sql, and tables are declared STRICT.
package database
