package fs

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey selects the primary ordering of a listing.
type SortKey int

const (
	SortByName SortKey = iota
	SortByDate
	SortBySize
	SortByType
	SortByPermissions
	SortByOwner
)

var sortKeyNames = map[SortKey]string{
	SortByName:        "name",
	SortByDate:        "date",
	SortBySize:        "size",
	SortByType:        "type",
	SortByPermissions: "permissions",
	SortByOwner:       "owner",
}

func (k SortKey) String() string {
	if n, ok := sortKeyNames[k]; ok {
		return n
	}
	return fmt.Sprintf("sortkey(%d)", int(k))
}

// ParseSortKey accepts the names produced by SortKey.String.
func ParseSortKey(v string) (SortKey, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for k, n := range sortKeyNames {
		if n == v {
			return k, nil
		}
	}
	return SortByName, fmt.Errorf("unknown sort key %q", v)
}

// Sort returns a sorted copy of entries. Folder-like entries always come
// first. ascending flips only the primary key; ties fall back to the
// case-insensitive name, then the raw name, then the path, all ascending,
// so the order is total and sorting twice changes nothing.
func Sort(entries []Entry, key SortKey, ascending bool) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)

	// Collators carry buffers and are not safe to share.
	col := collate.New(language.Und, collate.IgnoreCase)

	sort.Slice(out, func(i, j int) bool {
		return compareEntries(col, out[i], out[j], key, ascending) < 0
	})
	return out
}

func compareEntries(col *collate.Collator, a, b Entry, key SortKey, ascending bool) int {
	if af, bf := a.IsFolderLike(), b.IsFolderLike(); af != bf {
		if af {
			return -1
		}
		return 1
	}

	var c int
	switch key {
	case SortByDate:
		c = a.ModTime.Compare(b.ModTime)
	case SortBySize:
		c = cmpInt64(a.Size, b.Size)
	case SortByType:
		c = col.CompareString(a.Ext, b.Ext)
	case SortByPermissions:
		c = cmpInt64(int64(a.Mode.Perm()), int64(b.Mode.Perm()))
	case SortByOwner:
		c = col.CompareString(a.Owner, b.Owner)
	default:
		c = col.CompareString(a.Name, b.Name)
	}
	if !ascending {
		c = -c
	}
	if c != 0 {
		return c
	}

	if c = col.CompareString(a.Name, b.Name); c != 0 {
		return c
	}
	if c = strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return strings.Compare(a.Path, b.Path)
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
