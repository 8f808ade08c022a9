// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single
// file. No separate database server to install, configure, or manage. The
// auth backend is a single-server deployment, and the workload is a handful
// of indexed point reads/writes per login, well within SQLite's comfort zone.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C
// compiler installed and cross-compilation becomes painful. modernc.org/sqlite
// is a pure Go translation of the SQLite C code — works everywhere Go works.
//
// CONSTRAINTS LIVE IN THE SCHEMA:
// Every uniqueness rule of the data model (unique email, unique username,
// one link per external identity, one link per user+provider) is a UNIQUE
// constraint here, NOT an application-level lookup-before-write. Two
// concurrent first-time logins for the same identity therefore cannot create
// duplicate rows — the loser gets a constraint violation, which the
// repository surfaces as apperror.Conflict and the resolver recovers from.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Sathishchary/Electron-Angular-App/internal/apperror"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool. The per-entity stores (UserStore,
// ProviderLinkStore) share one DB and implement the repository interfaces.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/auth.db"  → file-based database (persistent)
//   - ":memory:"      → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping verifies the connection actually works. Without this, a bad path
	// or permissions issue would only surface on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is happening — default
	// SQLite locks the whole database during writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (backwards compatibility).
	// We need them ON so deleting a user cascades to its provider links.
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
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs all database migrations.
// CREATE TABLE IF NOT EXISTS is idempotent — safe on existing databases.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			username      TEXT NOT NULL UNIQUE,
			first_name    TEXT NOT NULL DEFAULT '',
			last_name     TEXT NOT NULL DEFAULT '',
			avatar_url    TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// ON DELETE CASCADE: the user exclusively owns its links.
	// The two UNIQUE constraints carry the link invariants — see package doc.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS provider_links (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			provider_name    TEXT NOT NULL,
			provider_user_id TEXT NOT NULL,
			access_token     TEXT NOT NULL DEFAULT '',
			refresh_token    TEXT NOT NULL DEFAULT '',
			token_expires_at DATETIME,
			created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (provider_name, provider_user_id),
			UNIQUE (user_id, provider_name)
		);
		CREATE INDEX IF NOT EXISTS idx_provider_links_user_id ON provider_links(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating provider_links table: %w", err)
	}

	return nil
}

// wrapConstraintErr converts a UNIQUE-constraint violation into
// apperror.Conflict so callers can detect it with errors.Is; any other error
// is wrapped with context as usual.
//
// modernc.org/sqlite reports constraint violations with the SQLite message
// "UNIQUE constraint failed: <table>.<column>", so string matching is the
// portable check.
func wrapConstraintErr(err error, resource, key string) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperror.Conflict(resource, key)
	}
	return fmt.Errorf("sqlite: inserting %s: %w", resource, err)
}
