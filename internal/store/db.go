// Package store persists panel state in a local SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/justyntemme/duopane/internal/debug"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS nav_history (
	side TEXT NOT NULL,
	direction TEXT NOT NULL,
	position INTEGER NOT NULL,
	path TEXT NOT NULL,
	PRIMARY KEY (side, direction, position)
);
CREATE TABLE IF NOT EXISTS selections (
	position INTEGER PRIMARY KEY,
	path TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS access_grants (
	path TEXT PRIMARY KEY,
	granted_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS panel_listings (
	side TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	saved_at INTEGER NOT NULL,
	entries TEXT NOT NULL
);
`

// DB is the state database. Methods are safe for concurrent use.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open creates or opens the database at dbPath and applies the schema.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection keeps per-connection pragmas in force and serializes writers.
	conn.SetMaxOpenConns(1)

	// WAL mode allows simultaneous readers and writers
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: journal mode: %w", err)
	}
	// Synchronous NORMAL is safe against app crashes, faster than FULL
	if _, err := conn.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: synchronous: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}

	debug.Log(debug.STORE, "store: opened %s", dbPath)
	return &DB{conn: conn, now: time.Now}, nil
}

// Close releases the database.
func (d *DB) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// Settings returns every stored key/value pair.
func (d *DB) Settings() (map[string]string, error) {
	rows, err := d.conn.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// SaveSetting upserts one key.
func (d *DB) SaveSetting(key, value string) error {
	_, err := d.conn.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	return err
}

// saveSettings upserts several keys in one transaction.
func (d *DB) saveSettings(values map[string]string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for k, v := range values {
		if _, err := stmt.Exec(k, v); err != nil {
			return fmt.Errorf("store: save %s: %w", k, err)
		}
	}
	return tx.Commit()
}
