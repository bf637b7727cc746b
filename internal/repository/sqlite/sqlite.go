// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for:
// - A single-server journal app (which is exactly what this is)
// - Development and testing (use ":memory:" for an in-memory DB)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// SCHEMA SHAPE:
// The journal's natural document shape is "a location with an embedded,
// ordered list of media". Relationally that becomes three tables:
//
//	users  ──< locations ──< media
//
// media rows carry a position column so the list stays insertion-ordered,
// and the location_id foreign key is ON DELETE CASCADE so deleting a
// location takes its media with it in a single atomic statement.
package sqlite

import (
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The underscore import `_ "modernc.org/sqlite"` is a "side-effect only" import.
	// It doesn't give us any symbols to use directly. Instead, the sqlite package's
	// init() function registers itself with database/sql as a driver named "sqlite".
	// After this import, sql.Open("sqlite", ...) knows how to talk to SQLite.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
//
// It implements both repository.UserRepository and repository.LocationRepository.
// The pool is process-wide and shared by every request; its lifecycle is
// explicit — New opens it at startup, Close releases it at shutdown.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/journal.db"  → file-based database (persistent)
//   - ":memory:"         → in-memory database (great for tests, lost on close)
//
// sql.Open() does NOT actually open a connection — it just creates a pool
// manager. We call Ping() to force an immediate connection and verify it
// works, so a bad path surfaces here instead of on the first query.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// ONE CONNECTION, NOT A POOL:
	// PRAGMAs apply per connection, and a ":memory:" path gives every NEW
	// connection its own empty database. With database/sql's default pool,
	// the foreign_keys pragma would only cover one connection and in-memory
	// tests would see vanishing tables. SQLite serialises writers anyway,
	// so a single connection costs little.
	conn.SetMaxOpenConns(1)

	// WAL (Write-Ahead Logging) mode:
	// Default SQLite locks the entire database during writes. WAL allows
	// concurrent reads WHILE a write is happening — important for a web
	// server where multiple requests hit the DB at once.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (for backwards compatibility).
	// We need them ON: the media table relies on ON DELETE CASCADE to keep
	// the "no orphaned media" invariant.
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

// Close closes the database connection pool.
//
// Wherever you call New(), arrange for Close() to run at shutdown — it
// flushes the WAL and releases the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is idempotent — safe to run on every startup.
// For a single-binary app this beats dragging in a migration framework.
func (db *DB) migrate() error {
	// users: email is UNIQUE — one account per address. The UNIQUE index is
	// what turns duplicate registration into a constraint violation we can
	// translate to a Conflict error.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// locations: every row is owned by a user. All queries filter on user_id,
	// so it gets a covering index together with created_at (list order).
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS locations (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			name       TEXT NOT NULL,
			lat        REAL NOT NULL,
			lng        REAL NOT NULL,
			country    TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_locations_user_created
			ON locations(user_id, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating locations table: %w", err)
	}

	// media: embedded list of a location. position preserves insertion order
	// (created_at alone can tie when two uploads land in the same second).
	// ON DELETE CASCADE means DELETE FROM locations atomically removes the
	// whole media list — no orphans, no second statement.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS media (
			id          TEXT PRIMARY KEY,
			location_id TEXT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
			url         TEXT NOT NULL,
			kind        TEXT NOT NULL CHECK (kind IN ('photo', 'video')),
			caption     TEXT NOT NULL DEFAULT '',
			position    INTEGER NOT NULL,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_media_location_position
			ON media(location_id, position);
	`)
	if err != nil {
		return fmt.Errorf("creating media table: %w", err)
	}

	return nil
}
