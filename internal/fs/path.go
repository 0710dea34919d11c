package fs

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Canonicalize expands and normalizes a user supplied path:
//   - ~ for the home directory
//   - relative paths against base
//   - Windows drive letters and UNC paths
//
// The result is absolute and clean. Symlinks are not resolved so that listed
// children keep the path the user navigated to.
func Canonicalize(input, base, home string) (string, error) {
	raw := input
	input = strings.TrimSpace(input)
	if input == "" || strings.ContainsRune(input, 0) {
		return "", &ScanError{Kind: KindInvalidPath, Path: raw}
	}

	if strings.HasPrefix(input, "~") {
		if home == "" {
			home, _ = os.UserHomeDir()
		}
		if input == "~" {
			return filepath.Clean(home), nil
		}
		if strings.HasPrefix(input, "~/") || strings.HasPrefix(input, "~\\") {
			return filepath.Clean(filepath.Join(home, input[2:])), nil
		}
	}

	if isAbsolutePath(input) {
		return filepath.Clean(input), nil
	}

	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", &ScanError{Kind: KindInvalidPath, Path: raw, Err: err}
		}
		base = wd
	}
	return filepath.Clean(filepath.Join(base, input)), nil
}

// Parent returns the parent directory of path, or path itself at the root.
func Parent(path string) string {
	return filepath.Dir(filepath.Clean(path))
}

// isAbsolutePath checks if a path is absolute, handling both Unix and Windows paths.
func isAbsolutePath(path string) bool {
	if len(path) == 0 {
		return false
	}

	if path[0] == '/' {
		return true
	}

	if runtime.GOOS == "windows" {
		// Drive letter paths: C:\, D:\, C:/, etc.
		if len(path) >= 2 && isLetter(path[0]) && path[1] == ':' {
			return true
		}
		// UNC paths: \\server\share
		if len(path) >= 2 && path[0] == '\\' && path[1] == '\\' {
			return true
		}
	}

	return false
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
