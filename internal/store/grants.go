package store

import (
	"database/sql"
	"errors"
	"path/filepath"

	"github.com/justyntemme/duopane/internal/debug"
)

// HasGrant reports whether path itself was granted.
func (d *DB) HasGrant(path string) (bool, error) {
	var one int
	err := d.conn.QueryRow("SELECT 1 FROM access_grants WHERE path = ?", filepath.Clean(path)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// RecordGrant stores a grant for path.
func (d *DB) RecordGrant(path string) error {
	debug.Log(debug.STORE, "store: grant %q", path)
	_, err := d.conn.Exec("INSERT OR IGNORE INTO access_grants (path) VALUES (?)", filepath.Clean(path))
	return err
}

// RevokeGrant removes a grant for path.
func (d *DB) RevokeGrant(path string) error {
	_, err := d.conn.Exec("DELETE FROM access_grants WHERE path = ?", filepath.Clean(path))
	return err
}

// Grants lists granted paths in the order they were granted.
func (d *DB) Grants() ([]string, error) {
	rows, err := d.conn.Query("SELECT path FROM access_grants ORDER BY granted_at, path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
