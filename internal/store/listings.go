package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/justyntemme/duopane/internal/debug"
	"github.com/justyntemme/duopane/internal/fs"
	"github.com/justyntemme/duopane/internal/panel"
)

// DefaultListingMaxAge is how long a saved listing may seed a panel at startup.
const DefaultListingMaxAge = 24 * time.Hour

// SaveListing stores the last listing of side so the next start can show it
// before the first scan finishes. Empty listings are not stored.
func (d *DB) SaveListing(side panel.Side, path string, entries []fs.Entry) error {
	if len(entries) == 0 || path == "" {
		return nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(
		"INSERT OR REPLACE INTO panel_listings (side, path, saved_at, entries) VALUES (?, ?, ?, ?)",
		side.String(), path, d.now().UnixNano(), string(data))
	return err
}

// LoadListing returns the saved listing of side when it was taken for path
// and is younger than maxAge.
func (d *DB) LoadListing(side panel.Side, path string, maxAge time.Duration) ([]fs.Entry, bool, error) {
	var savedPath, data string
	var savedAt int64
	err := d.conn.QueryRow(
		"SELECT path, saved_at, entries FROM panel_listings WHERE side = ?", side.String(),
	).Scan(&savedPath, &savedAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if savedPath != path {
		debug.Log(debug.STORE, "store: %s listing is for %q, want %q", side, savedPath, path)
		return nil, false, nil
	}
	if maxAge <= 0 {
		maxAge = DefaultListingMaxAge
	}
	if age := d.now().Sub(time.Unix(0, savedAt)); age > maxAge {
		debug.Log(debug.STORE, "store: %s listing is stale (%s)", side, age)
		return nil, false, nil
	}

	var entries []fs.Entry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}
