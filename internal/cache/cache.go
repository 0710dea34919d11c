// Package cache holds the most recent listing of each panel.
package cache

import (
	"sync"

	"github.com/justyntemme/duopane/internal/fs"
	"github.com/justyntemme/duopane/internal/panel"
)

// DirectoryCache stores one entry list per side. The only mutation is a
// whole-list Replace; readers never observe a partially written list.
// Returned slices are shared and must be treated as read-only.
type DirectoryCache struct {
	mu    sync.RWMutex
	lists [2][]fs.Entry
}

// New returns an empty cache.
func New() *DirectoryCache {
	return &DirectoryCache{}
}

// Replace publishes entries as the side's listing. The slice is copied.
func (c *DirectoryCache) Replace(side panel.Side, entries []fs.Entry) {
	if !side.Valid() {
		return
	}
	list := make([]fs.Entry, len(entries))
	copy(list, entries)

	c.mu.Lock()
	c.lists[side] = list
	c.mu.Unlock()
}

// Get returns the side's current listing.
func (c *DirectoryCache) Get(side panel.Side) []fs.Entry {
	if !side.Valid() {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lists[side]
}

// Len returns the number of entries cached for side.
func (c *DirectoryCache) Len(side panel.Side) int {
	return len(c.Get(side))
}
