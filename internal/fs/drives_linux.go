//go:build linux

package fs

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ListDrives returns the root plus real mounts from /proc/mounts.
func ListDrives() []Drive {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return []Drive{{Name: "/ (Root)", Path: "/"}}
	}
	defer f.Close()
	return parseMounts(f)
}

func parseMounts(r io.Reader) []Drive {
	drives := []Drive{{Name: "/ (Root)", Path: "/"}}
	seen := map[string]bool{"/": true}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		mountPoint, fsType := unescapeMount(fields[1]), fields[2]

		if virtualFS[fsType] || shouldSkipPath(mountPoint) || seen[mountPoint] {
			continue
		}
		seen[mountPoint] = true

		name := mountPoint
		switch {
		case strings.HasPrefix(mountPoint, "/media/"), strings.HasPrefix(mountPoint, "/mnt/"):
			name = filepath.Base(mountPoint)
		case mountPoint == "/home":
			name = "Home"
		}
		drives = append(drives, Drive{Name: name, Path: mountPoint})
	}
	return drives
}

// unescapeMount decodes the octal escapes /proc/mounts uses for spaces and tabs.
func unescapeMount(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	r := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	return r.Replace(s)
}
