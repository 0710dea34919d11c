// Package fs lists directories, orders their entries and builds the
// favorites tree.
package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"syscall"
	"time"
)

// Entry is one listed filesystem object. Entries are values and are never
// modified after a scan produces them.
type Entry struct {
	Path         string        `json:"path"`
	Name         string        `json:"name"`
	IsDir        bool          `json:"isDir"`
	IsSymlink    bool          `json:"isSymlink,omitempty"`
	IsSymlinkDir bool          `json:"isSymlinkDir,omitempty"`
	Size         int64         `json:"size"`
	ModTime      time.Time     `json:"modTime"`
	Mode         iofs.FileMode `json:"mode"`
	Owner        string        `json:"owner,omitempty"`
	Ext          string        `json:"ext,omitempty"`
}

// IsFolderLike reports whether the entry behaves as a directory for ordering
// and navigation.
func (e Entry) IsFolderLike() bool {
	return e.IsDir || e.IsSymlinkDir
}

// ErrorKind classifies scan failures.
type ErrorKind int

const (
	KindIO ErrorKind = iota
	KindNotFound
	KindPermissionDenied
	KindInvalidPath
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindPermissionDenied:
		return "permission-denied"
	case KindInvalidPath:
		return "invalid-path"
	default:
		return "io-error"
	}
}

// Sentinels for errors.Is against a *ScanError.
var (
	ErrNotFound         = errors.New("directory not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrIO               = errors.New("i/o error")
	ErrInvalidPath      = errors.New("invalid path")

	errNotDirectory = errors.New("not a directory")
)

// ScanError is returned by Scan and Canonicalize.
type ScanError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Path, e.sentinel())
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.sentinel(), e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *ScanError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *ScanError) sentinel() error {
	switch e.Kind {
	case KindNotFound:
		return ErrNotFound
	case KindPermissionDenied:
		return ErrPermissionDenied
	case KindInvalidPath:
		return ErrInvalidPath
	default:
		return ErrIO
	}
}

// Kind returns the ErrorKind of err, or KindIO for errors that did not come
// from this package.
func Kind(err error) ErrorKind {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindIO
}

// classify wraps an os error with the matching kind.
func classify(path string, err error) *ScanError {
	var se *ScanError
	if errors.As(err, &se) {
		return se
	}
	kind := KindIO
	switch {
	case errors.Is(err, os.ErrNotExist):
		kind = KindNotFound
	case errors.Is(err, os.ErrPermission), errors.Is(err, syscall.EPERM):
		kind = KindPermissionDenied
	case errors.Is(err, syscall.ENOTDIR), errors.Is(err, syscall.ENAMETOOLONG), errors.Is(err, syscall.EINVAL):
		kind = KindInvalidPath
	}
	return &ScanError{Kind: kind, Path: path, Err: err}
}
