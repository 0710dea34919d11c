package fs

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/justyntemme/duopane/internal/debug"
)

// FavoriteLimits bounds the favorites tree.
type FavoriteLimits struct {
	MaxDirectories int      // children listed per node
	MaxDepth       int      // levels below each root
	Exclude        []string // doublestar patterns matched against directory names
}

// DefaultFavoriteLimits mirrors the shipped configuration.
func DefaultFavoriteLimits() FavoriteLimits {
	return FavoriteLimits{MaxDirectories: 64, MaxDepth: 2}
}

// FavoriteRoot is one configured favorite.
type FavoriteRoot struct {
	Name string
	Path string
}

// FavoriteGroup is a named list of roots, e.g. "Favorites" or "Volumes".
type FavoriteGroup struct {
	Name  string
	Roots []FavoriteRoot
}

// FavoriteNode is a directory in the favorites tree.
type FavoriteNode struct {
	Name      string         `json:"name"`
	Path      string         `json:"path"`
	Depth     int            `json:"depth"`
	Children  []FavoriteNode `json:"children,omitempty"`
	Truncated bool           `json:"truncated,omitempty"`
	Err       error          `json:"-"`
}

// FavoriteSection is a built group.
type FavoriteSection struct {
	Name  string         `json:"name"`
	Nodes []FavoriteNode `json:"nodes"`
}

// FavoritesScanner builds bounded directory trees below favorite roots.
type FavoritesScanner struct {
	scanner *Scanner
	limits  FavoriteLimits
}

// NewFavoritesScanner returns a FavoritesScanner. Zero limits take defaults.
func NewFavoritesScanner(s *Scanner, limits FavoriteLimits) *FavoritesScanner {
	def := DefaultFavoriteLimits()
	if limits.MaxDirectories <= 0 {
		limits.MaxDirectories = def.MaxDirectories
	}
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = def.MaxDepth
	}
	if s == nil {
		s = NewScanner()
	}
	return &FavoritesScanner{scanner: s, limits: limits}
}

// VolumesGroup turns mounted drives into a favorites group.
func VolumesGroup(drives []Drive) FavoriteGroup {
	g := FavoriteGroup{Name: "Volumes"}
	for _, d := range drives {
		g.Roots = append(g.Roots, FavoriteRoot{Name: d.Name, Path: d.Path})
	}
	return g
}

// Build expands every group. Roots that cannot be listed are kept with Err set.
// A directory reachable twice (through symlinks or overlapping roots) is
// expanded only the first time.
func (f *FavoritesScanner) Build(ctx context.Context, groups []FavoriteGroup) []FavoriteSection {
	visited := make(map[string]bool)
	sections := make([]FavoriteSection, 0, len(groups))
	for _, g := range groups {
		sec := FavoriteSection{Name: g.Name}
		for _, r := range g.Roots {
			if ctx.Err() != nil {
				return sections
			}
			name := r.Name
			if name == "" {
				name = filepath.Base(r.Path)
			}
			sec.Nodes = append(sec.Nodes, f.expand(ctx, name, r.Path, 0, visited))
		}
		sections = append(sections, sec)
	}
	return sections
}

func (f *FavoritesScanner) expand(ctx context.Context, name, path string, depth int, visited map[string]bool) FavoriteNode {
	node := FavoriteNode{Name: name, Path: path, Depth: depth}

	key := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		key = resolved
	}
	if visited[key] {
		debug.Log(debug.SCAN, "favorites: %q already expanded", path)
		return node
	}
	visited[key] = true

	if depth >= f.limits.MaxDepth || ctx.Err() != nil {
		return node
	}

	entries, err := f.scanner.Scan(path, ScanOptions{})
	if err != nil {
		node.Err = err
		return node
	}

	for _, e := range Sort(entries, SortByName, true) {
		if !e.IsFolderLike() || f.excluded(e.Name) || shouldSkipPath(e.Path) {
			continue
		}
		if len(node.Children) >= f.limits.MaxDirectories {
			node.Truncated = true
			break
		}
		node.Children = append(node.Children, f.expand(ctx, e.Name, e.Path, depth+1, visited))
	}
	return node
}

func (f *FavoritesScanner) excluded(name string) bool {
	for _, pattern := range f.limits.Exclude {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// skipDirRoots contains top-level directories never expanded in the tree.
var skipDirRoots = map[string]bool{
	"dev":        true,
	"proc":       true,
	"sys":        true,
	"run":        true,
	"snap":       true,
	"boot":       true,
	"lost+found": true,
}

// shouldSkipPath reports whether path lives under a pseudo filesystem root.
func shouldSkipPath(path string) bool {
	if len(path) < 2 || path[0] != '/' {
		return false
	}
	rest := path[1:]
	if i := strings.IndexByte(rest, '/'); i != -1 {
		rest = rest[:i]
	}
	return skipDirRoots[rest]
}
