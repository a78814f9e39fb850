// Package sqlite implements the repository interfaces on top of SQLite.
//
// We use modernc.org/sqlite — a pure-Go translation of SQLite — so the
// server builds without CGo and cross-compiles anywhere Go does. The
// database is a single file (or ":memory:" in tests), which matches the
// deployment model: one process, one store.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository
// interfaces (UserRepository, LotRepository, BidRepository).
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath, configures it, and runs migrations.
//
// dbPath may be a file path (persistent) or ":memory:" (tests).
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One connection, two reasons: SQLite allows a single writer at a time,
	// so a second pooled connection only buys SQLITE_BUSY errors under
	// concurrent bids; and with this driver each ":memory:" connection is
	// its own database, which would break tests.
	conn.SetMaxOpenConns(1)

	// Surface bad paths/permissions now rather than on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight — without it every
	// bid would block every lot listing.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite. The bids → lots cascade
	// depends on this pragma.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers should defer this right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this
// idempotent — safe to run on every startup against an existing file.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			paid          INTEGER NOT NULL DEFAULT 0,
			is_admin      INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// images holds a JSON-encoded array of stored filenames, in upload order.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS lots (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			title         TEXT NOT NULL,
			description   TEXT NOT NULL,
			start_price   INTEGER NOT NULL,
			reserve_price INTEGER NOT NULL DEFAULT 0,
			current_bid   INTEGER NOT NULL,
			end_time      DATETIME NOT NULL,
			owner         TEXT NOT NULL,
			images        TEXT NOT NULL DEFAULT '[]',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_lots_created_at ON lots(created_at);
		CREATE INDEX IF NOT EXISTS idx_lots_end_time ON lots(end_time);
	`)
	if err != nil {
		return fmt.Errorf("creating lots table: %w", err)
	}

	// Deleting a lot removes its bid history with it.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS bids (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			lot_id     INTEGER NOT NULL REFERENCES lots(id) ON DELETE CASCADE,
			bidder     TEXT NOT NULL,
			amount     INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_bids_lot_id ON bids(lot_id);
	`)
	if err != nil {
		return fmt.Errorf("creating bids table: %w", err)
	}

	return nil
}
