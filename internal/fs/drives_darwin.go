//go:build darwin

package fs

import (
	"os"
	"path/filepath"
)

// ListDrives returns the volumes under /Volumes, boot volume first.
func ListDrives() []Drive {
	entries, err := NewScanner().Scan("/Volumes", ScanOptions{})
	if err != nil {
		return []Drive{{Name: "Macintosh HD", Path: "/"}}
	}

	var drives []Drive
	for _, e := range Sort(entries, SortByName, true) {
		if !e.IsFolderLike() {
			continue
		}
		// The boot volume is a symlink to /.
		if target, err := os.Readlink(e.Path); err == nil && filepath.Clean(target) == "/" {
			drives = append([]Drive{{Name: e.Name, Path: "/"}}, drives...)
			continue
		}
		drives = append(drives, Drive{Name: e.Name, Path: e.Path})
	}

	if len(drives) == 0 {
		return []Drive{{Name: "Macintosh HD", Path: "/"}}
	}
	return drives
}
