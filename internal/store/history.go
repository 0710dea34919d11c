package store

import (
	"github.com/justyntemme/duopane/internal/history"
	"github.com/justyntemme/duopane/internal/panel"
)

const (
	dirBack    = "back"
	dirForward = "forward"
)

// SaveHistory replaces the stored navigation history of side.
func (d *DB) SaveHistory(side panel.Side, snap history.Snapshot) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM nav_history WHERE side = ?", side.String()); err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO nav_history (side, direction, position, path) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for dir, list := range map[string][]string{dirBack: snap.Back, dirForward: snap.Forward} {
		for i, p := range list {
			if _, err := stmt.Exec(side.String(), dir, i, p); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// LoadHistory returns the stored navigation history of side, oldest first.
func (d *DB) LoadHistory(side panel.Side) (history.Snapshot, error) {
	var snap history.Snapshot
	rows, err := d.conn.Query(
		"SELECT direction, path FROM nav_history WHERE side = ? ORDER BY direction, position",
		side.String())
	if err != nil {
		return snap, err
	}
	defer rows.Close()

	for rows.Next() {
		var dir, path string
		if err := rows.Scan(&dir, &path); err != nil {
			return snap, err
		}
		switch dir {
		case dirBack:
			snap.Back = append(snap.Back, path)
		case dirForward:
			snap.Forward = append(snap.Forward, path)
		}
	}
	return snap, rows.Err()
}

// SaveSelections replaces the recent selections, most recent first.
func (d *DB) SaveSelections(paths []string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM selections"); err != nil {
		return err
	}
	for i, p := range paths {
		if _, err := tx.Exec("INSERT INTO selections (position, path) VALUES (?, ?)", i, p); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadSelections returns the recent selections, most recent first.
func (d *DB) LoadSelections() ([]string, error) {
	rows, err := d.conn.Query("SELECT path FROM selections ORDER BY position")
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

// ClearHistory drops every navigation history and the selections list.
func (d *DB) ClearHistory() error {
	if _, err := d.conn.Exec("DELETE FROM nav_history"); err != nil {
		return err
	}
	_, err := d.conn.Exec("DELETE FROM selections")
	return err
}
