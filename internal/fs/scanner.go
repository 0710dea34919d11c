package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/justyntemme/duopane/internal/debug"
)

// ScanOptions controls what a listing includes.
type ScanOptions struct {
	ShowHidden bool
}

// Scanner lists the direct children of a directory. The only state it keeps
// is a memo of owner names.
type Scanner struct {
	owners *ownerCache
}

// NewScanner returns a ready Scanner.
func NewScanner() *Scanner {
	return &Scanner{owners: newOwnerCache()}
}

// Scan returns the direct children of path. Symlinked children are resolved
// once to decide whether they point at a directory; they are never descended
// into. Errors are *ScanError values classified by kind.
func (s *Scanner) Scan(path string, opts ScanOptions) ([]Entry, error) {
	debug.Log(debug.SCAN, "scan: reading %q hidden=%v", path, opts.ShowHidden)

	if err := CheckDir(path); err != nil {
		return nil, err
	}

	// Opening the directory surfaces EACCES before the walk swallows it.
	f, err := os.Open(path)
	if err != nil {
		return nil, classify(path, err)
	}
	f.Close()

	// A symlinked root is walked through its target but children are
	// reported under the path the caller asked for.
	walkRoot := path
	if li, err := os.Lstat(path); err == nil && li.Mode()&os.ModeSymlink != 0 {
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			walkRoot = resolved
			debug.Log(debug.SCAN, "scan: %q resolves to %q", path, resolved)
		}
	}

	var result []Entry
	var mu sync.Mutex
	var attempted, denied int

	conf := &fastwalk.Config{
		Follow: false,
	}

	err = fastwalk.Walk(conf, walkRoot, func(fullPath string, d iofs.DirEntry, err error) error {
		if err != nil {
			if fullPath == walkRoot {
				return err
			}
			debug.Log(debug.SCAN_ENTRY, "scan: walk error at %q: %v", fullPath, err)
			return nil
		}

		if fullPath == walkRoot {
			return nil
		}

		name := d.Name()
		if !opts.ShowHidden && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		entry, statErr := s.entryFor(filepath.Join(path, name), fullPath, d)
		mu.Lock()
		attempted++
		switch {
		case statErr == nil:
			result = append(result, entry)
		case errors.Is(statErr, os.ErrPermission):
			denied++
		}
		mu.Unlock()

		if d.IsDir() {
			return fastwalk.SkipDir
		}
		return nil
	})

	if err != nil {
		debug.Log(debug.SCAN, "scan: walk error: %v", err)
		return nil, classify(path, err)
	}

	// A readable but unsearchable directory lists names whose stats all fail.
	if attempted > 0 && denied == attempted {
		return nil, &ScanError{Kind: KindPermissionDenied, Path: path, Err: os.ErrPermission}
	}

	debug.Log(debug.SCAN, "scan: %q returned %d entries", path, len(result))
	return result, nil
}

// CheckDir reports whether path names an existing directory. It does not
// check that the directory is readable.
func CheckDir(path string) error {
	if path == "" || strings.ContainsRune(path, 0) {
		return &ScanError{Kind: KindInvalidPath, Path: path}
	}
	info, err := os.Stat(path)
	if err != nil {
		return classify(path, err)
	}
	if !info.IsDir() {
		return &ScanError{Kind: KindInvalidPath, Path: path, Err: errNotDirectory}
	}
	return nil
}

// entryFor builds the Entry for one child. reported is the path exposed to
// callers; onDisk is where the walk found it.
func (s *Scanner) entryFor(reported, onDisk string, d iofs.DirEntry) (Entry, error) {
	isLink := d.Type()&os.ModeSymlink != 0

	var info iofs.FileInfo
	var err error
	linkDir := false
	if isLink {
		// StatDirEntry follows the link chain; ELOOP and dangling targets
		// fall back to the link itself.
		info, err = fastwalk.StatDirEntry(onDisk, d)
		if err == nil {
			linkDir = info.IsDir()
		} else {
			info, err = os.Lstat(onDisk)
			debug.Log(debug.SCAN_ENTRY, "scan: %q: using lstat (target inaccessible)", d.Name())
		}
	} else {
		info, err = d.Info()
	}
	if err != nil {
		debug.Log(debug.SCAN_ENTRY, "scan: skipping %q: stat error: %v", d.Name(), err)
		return Entry{}, err
	}

	isDir := !isLink && info.IsDir()
	e := Entry{
		Path:         reported,
		Name:         d.Name(),
		IsDir:        isDir,
		IsSymlink:    isLink,
		IsSymlinkDir: linkDir,
		ModTime:      info.ModTime(),
		Mode:         info.Mode().Perm(),
		Owner:        s.owners.lookup(info),
	}
	if !e.IsFolderLike() {
		e.Size = info.Size()
		e.Ext = strings.ToLower(filepath.Ext(e.Name))
	}

	debug.Log(debug.SCAN_ENTRY, "scan: %q isDir=%v link=%v linkDir=%v size=%d",
		e.Name, e.IsDir, e.IsSymlink, e.IsSymlinkDir, e.Size)
	return e, nil
}
