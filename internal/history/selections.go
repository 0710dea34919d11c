package history

import (
	"path/filepath"
	"sync"
)

// DefaultSelectionsLimit bounds the recent selections list.
const DefaultSelectionsLimit = 32

// Selections is the global most-recent-first list of visited directories.
// Each path appears at most once. It is safe for concurrent use.
type Selections struct {
	mu    sync.RWMutex
	items []string
	limit int
}

// NewSelections returns an empty list bounded to limit entries.
func NewSelections(limit int) *Selections {
	if limit <= 0 {
		limit = DefaultSelectionsLimit
	}
	return &Selections{limit: limit}
}

// Add moves path to the front. Adding the current front again is a no-op.
func (s *Selections) Add(path string) {
	path = canonical(path)
	if path == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) > 0 && s.items[0] == path {
		return
	}
	items := make([]string, 0, len(s.items)+1)
	items = append(items, path)
	for _, v := range s.items {
		if v != path {
			items = append(items, v)
		}
	}
	if len(items) > s.limit {
		items = items[:s.limit]
	}
	s.items = items
}

// Remove drops path if present.
func (s *Selections) Remove(path string) {
	path = canonical(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, v := range s.items {
		if v == path {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return
		}
	}
}

// Clear empties the list.
func (s *Selections) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

// Recent returns a copy, most recent first.
func (s *Selections) Recent() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.items...)
}

// Front returns the most recent path.
func (s *Selections) Front() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.items) == 0 {
		return "", false
	}
	return s.items[0], true
}

// Len returns the number of entries.
func (s *Selections) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Restore replaces the list with paths (most recent first), applying the
// same canonicalization, de-duplication and bound as Add.
func (s *Selections) Restore(paths []string) {
	seen := make(map[string]bool, len(paths))
	items := make([]string, 0, len(paths))
	for _, p := range paths {
		p = canonical(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		items = append(items, p)
		if len(items) == s.limit {
			break
		}
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

func canonical(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}
