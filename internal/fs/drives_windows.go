//go:build windows

package fs

import (
	"golang.org/x/sys/windows"
)

// ListDrives returns the logical drives with volume labels where available.
// GetVolumeInformation can block on disconnected network drives.
func ListDrives() []Drive {
	mask, err := windows.GetLogicalDrives()
	if err != nil || mask == 0 {
		return nil
	}

	var drives []Drive
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		letter := string(rune('A' + i))
		root := letter + `:\`
		rootPtr, err := windows.UTF16PtrFromString(root)
		if err != nil {
			continue
		}

		kind := windows.GetDriveType(rootPtr)
		if kind == windows.DRIVE_UNKNOWN || kind == windows.DRIVE_NO_ROOT_DIR {
			continue
		}

		name := letter + ":"
		label := make([]uint16, windows.MAX_PATH+1)
		if windows.GetVolumeInformation(rootPtr, &label[0], uint32(len(label)), nil, nil, nil, nil, 0) == nil {
			if v := windows.UTF16ToString(label); v != "" {
				name = v + " (" + letter + ":)"
			}
		}
		if name == letter+":" {
			switch kind {
			case windows.DRIVE_REMOVABLE:
				name = "Removable (" + letter + ":)"
			case windows.DRIVE_CDROM:
				name = "CD/DVD (" + letter + ":)"
			case windows.DRIVE_REMOTE:
				name = "Network (" + letter + ":)"
			}
		}

		drives = append(drives, Drive{Name: name, Path: root})
	}
	return drives
}
