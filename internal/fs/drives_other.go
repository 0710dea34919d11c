//go:build !linux && !darwin && !windows

package fs

// ListDrives returns only the filesystem root.
func ListDrives() []Drive {
	return []Drive{{Name: "/", Path: "/"}}
}
