// Package database provides SQLite connectivity for the per-device
// configuration store.
//
// It opens the database file with WAL mode and a busy timeout, verifies the
// connection, and applies embedded schema migrations in version order.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Migrations are additive: new columns must be
// nullable or carry a default.
package database
