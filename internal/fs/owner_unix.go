//go:build !windows

package fs

import (
	iofs "io/fs"
	"os/user"
	"strconv"
	"sync"
	"syscall"
)

type ownerCache struct {
	mu    sync.RWMutex
	names map[uint32]string
}

func newOwnerCache() *ownerCache {
	return &ownerCache{names: make(map[uint32]string)}
}

// lookup returns the user name owning info, falling back to the numeric uid.
func (c *ownerCache) lookup(info iofs.FileInfo) string {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return ""
	}
	uid := st.Uid

	c.mu.RLock()
	name, ok := c.names[uid]
	c.mu.RUnlock()
	if ok {
		return name
	}

	id := strconv.FormatUint(uint64(uid), 10)
	name = id
	if u, err := user.LookupId(id); err == nil {
		name = u.Username
	}

	c.mu.Lock()
	c.names[uid] = name
	c.mu.Unlock()
	return name
}
