package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/justyntemme/duopane/internal/fs"
	"github.com/justyntemme/duopane/internal/logging"
	"github.com/justyntemme/duopane/internal/panel"
)

// Setting keys.
const (
	keyLeftPath        = "leftPath"
	keyRightPath       = "rightPath"
	keySortKey         = "sortKey"
	keySortAscending   = "sortAscending"
	keyShowHidden      = "showHiddenFiles"
	keyExpandedFolders = "expandedFolders"
	keyFocusedSide     = "focusedSide"
)

// Snapshot is the state restored at startup.
type Snapshot struct {
	LeftPath        string
	RightPath       string
	SortKey         fs.SortKey
	SortAscending   bool
	ShowHidden      bool
	ExpandedFolders []string
	FocusedSide     panel.Side
}

// Path returns the stored path for side.
func (s Snapshot) Path(side panel.Side) string {
	if side == panel.Right {
		return s.RightPath
	}
	return s.LeftPath
}

// DefaultSnapshot starts the left panel in Downloads and the right one in
// Documents, falling back to home when either is missing.
func DefaultSnapshot(home string) Snapshot {
	pick := func(name string) string {
		p := filepath.Join(home, name)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p
		}
		return home
	}
	return Snapshot{
		LeftPath:      pick("Downloads"),
		RightPath:     pick("Documents"),
		SortKey:       fs.SortByName,
		SortAscending: true,
		FocusedSide:   panel.Left,
	}
}

// LoadSnapshot reads the stored state on top of defaults. Each key falls back
// to defaults on its own, so one corrupt value does not discard the rest.
func (d *DB) LoadSnapshot(defaults Snapshot) (Snapshot, error) {
	snap := defaults
	snap.ExpandedFolders = append([]string(nil), defaults.ExpandedFolders...)

	settings, err := d.Settings()
	if err != nil {
		return snap, err
	}
	log := logging.L()
	bad := func(key, value string, err error) {
		log.Warn("store: ignoring stored value", zap.String("key", key), zap.String("value", value), zap.Error(err))
	}

	if v, ok := settings[keyLeftPath]; ok && v != "" {
		snap.LeftPath = v
	}
	if v, ok := settings[keyRightPath]; ok && v != "" {
		snap.RightPath = v
	}
	if v, ok := settings[keySortKey]; ok {
		if k, err := fs.ParseSortKey(v); err == nil {
			snap.SortKey = k
		} else {
			bad(keySortKey, v, err)
		}
	}
	if v, ok := settings[keySortAscending]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			snap.SortAscending = b
		} else {
			bad(keySortAscending, v, err)
		}
	}
	if v, ok := settings[keyShowHidden]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			snap.ShowHidden = b
		} else {
			bad(keyShowHidden, v, err)
		}
	}
	if v, ok := settings[keyExpandedFolders]; ok {
		var folders []string
		if err := json.Unmarshal([]byte(v), &folders); err == nil {
			snap.ExpandedFolders = folders
		} else {
			bad(keyExpandedFolders, v, err)
		}
	}
	if v, ok := settings[keyFocusedSide]; ok {
		if s, err := panel.ParseSide(v); err == nil {
			snap.FocusedSide = s
		} else {
			bad(keyFocusedSide, v, err)
		}
	}
	return snap, nil
}

// SaveExpandedFolders replaces the stored expanded favorites.
func (d *DB) SaveExpandedFolders(folders []string) error {
	if folders == nil {
		folders = []string{}
	}
	data, err := json.Marshal(folders)
	if err != nil {
		return err
	}
	return d.SaveSetting(keyExpandedFolders, string(data))
}

// SaveSnapshot writes every key of snap.
func (d *DB) SaveSnapshot(snap Snapshot) error {
	folders, err := json.Marshal(snap.ExpandedFolders)
	if err != nil {
		return err
	}
	if snap.ExpandedFolders == nil {
		folders = []byte("[]")
	}
	return d.saveSettings(map[string]string{
		keyLeftPath:        snap.LeftPath,
		keyRightPath:       snap.RightPath,
		keySortKey:         snap.SortKey.String(),
		keySortAscending:   strconv.FormatBool(snap.SortAscending),
		keyShowHidden:      strconv.FormatBool(snap.ShowHidden),
		keyExpandedFolders: string(folders),
		keyFocusedSide:     snap.FocusedSide.String(),
	})
}
