//go:build windows

package fs

import iofs "io/fs"

type ownerCache struct{}

func newOwnerCache() *ownerCache { return &ownerCache{} }

// lookup is empty on Windows; FileInfo carries no owner.
func (c *ownerCache) lookup(iofs.FileInfo) string { return "" }
