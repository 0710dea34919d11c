package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justyntemme/duopane/internal/config"
	"github.com/justyntemme/duopane/internal/fs"
	"github.com/justyntemme/duopane/internal/store"
)

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Print the favorites tree",
	Long: `Print configured favorites and mounted volumes. Children are shown for
folders marked expanded, or for every folder with --all. Depth, width and
excluded names come from the favorites section of the config.

Examples:
  duopane favorites
  duopane favorites --all
  duopane favorites --json
  duopane favorites add ~/src --name Source
  duopane favorites expand ~/src`,
	Args: cobra.NoArgs,
	RunE: runFavorites,
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Add a top-level favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveArg(args[0])
		if err != nil {
			return err
		}
		if err := fs.CheckDir(path); err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = filepath.Base(path)
		}
		if err := cfgManager.AddFavorite(name, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", name, path)
		return nil
	},
}

var favoritesRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Remove a top-level favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := cfgManager.RemoveFavorite(args[0])
		if errors.Is(err, config.ErrFavoriteNotFound) {
			if path, rerr := resolveArg(args[0]); rerr == nil && path != args[0] {
				err = cfgManager.RemoveFavorite(path)
			}
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	},
}

var favoritesExpandCmd = &cobra.Command{
	Use:   "expand <path>",
	Short: "Show a folder's children when printing favorites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateExpanded(args[0], true)
	},
}

var favoritesCollapseCmd = &cobra.Command{
	Use:   "collapse <path>",
	Short: "Hide a folder's children when printing favorites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateExpanded(args[0], false)
	},
}

func init() {
	favoritesCmd.Flags().Bool("json", false, "Output the tree as JSON")
	favoritesCmd.Flags().Bool("all", false, "Expand every folder")
	favoritesAddCmd.Flags().String("name", "", "Display name (default: the directory name)")
	favoritesCmd.AddCommand(favoritesAddCmd, favoritesRemoveCmd, favoritesExpandCmd, favoritesCollapseCmd)
	rootCmd.AddCommand(favoritesCmd)
}

func resolveArg(arg string) (string, error) {
	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()
	return fs.Canonicalize(arg, cwd, home)
}

func updateExpanded(arg string, expand bool) error {
	path, err := resolveArg(arg)
	if err != nil {
		return err
	}
	home, _ := os.UserHomeDir()
	db, err := store.Open(cfgManager.Get().Store.Path)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()

	snap, err := db.LoadSnapshot(store.DefaultSnapshot(home))
	if err != nil {
		return err
	}
	return db.SaveExpandedFolders(setExpanded(snap.ExpandedFolders, path, expand))
}

// setExpanded adds or removes path, keeping the order of the rest.
func setExpanded(folders []string, path string, expand bool) []string {
	out := make([]string, 0, len(folders)+1)
	for _, f := range folders {
		if f != path {
			out = append(out, f)
		}
	}
	if expand {
		out = append(out, path)
	}
	return out
}

func runFavorites(cmd *cobra.Command, args []string) error {
	cfg := cfgManager.Get()
	home, _ := os.UserHomeDir()

	groups := favoriteGroups(cfg.Favorites.Entries, home)
	if cfg.Favorites.ShowVolumes {
		groups = append(groups, fs.VolumesGroup(fs.ListDrives()))
	}

	scanner := fs.NewFavoritesScanner(fs.NewScanner(), fs.FavoriteLimits{
		MaxDirectories: cfg.Favorites.MaxDirectories,
		MaxDepth:       cfg.Favorites.MaxDepth,
		Exclude:        cfg.Favorites.Exclude,
	})
	sections := scanner.Build(cmd.Context(), groups)

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sections)
	}

	var expanded map[string]bool
	if all, _ := cmd.Flags().GetBool("all"); !all {
		var err error
		if expanded, err = expandedSet(cfg.Store.Path, home); err != nil {
			return err
		}
	}
	for _, sec := range sections {
		fmt.Fprintf(out, "%s\n", sec.Name)
		for _, n := range sec.Nodes {
			printNode(out, n, 1, expanded)
		}
	}
	return nil
}

func expandedSet(dbPath, home string) (map[string]bool, error) {
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()
	snap, err := db.LoadSnapshot(store.DefaultSnapshot(home))
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(snap.ExpandedFolders))
	for _, f := range snap.ExpandedFolders {
		set[f] = true
	}
	return set, nil
}

// favoriteGroups maps config entries to groups. Top-level entries without a
// group type are collected under "Favorites".
func favoriteGroups(entries []config.FavoriteEntry, home string) []fs.FavoriteGroup {
	top := fs.FavoriteGroup{Name: "Favorites"}
	var groups []fs.FavoriteGroup
	for _, e := range entries {
		if e.Type == "group" {
			g := fs.FavoriteGroup{Name: e.Name}
			for _, item := range e.Items {
				if r, ok := favoriteRoot(item, home); ok {
					g.Roots = append(g.Roots, r)
				}
			}
			groups = append(groups, g)
			continue
		}
		if r, ok := favoriteRoot(e, home); ok {
			top.Roots = append(top.Roots, r)
		}
	}
	if len(top.Roots) > 0 {
		groups = append([]fs.FavoriteGroup{top}, groups...)
	}
	return groups
}

func favoriteRoot(e config.FavoriteEntry, home string) (fs.FavoriteRoot, bool) {
	path, err := fs.Canonicalize(e.Path, home, home)
	if err != nil {
		return fs.FavoriteRoot{}, false
	}
	return fs.FavoriteRoot{Name: e.Name, Path: path}, true
}

// printNode prints n and, when expanded is nil or holds n.Path, its children.
// Collapsed nodes with children are marked with "+".
func printNode(w io.Writer, n fs.FavoriteNode, indent int, expanded map[string]bool) {
	pad := strings.Repeat("  ", indent)
	show := expanded == nil || expanded[n.Path]
	name := n.Name
	if !show && len(n.Children) > 0 {
		name = "+ " + name
	}
	switch {
	case n.Err != nil:
		fmt.Fprintf(w, "%s%s  (%s)\n", pad, name, fs.Kind(n.Err))
	case n.Truncated:
		fmt.Fprintf(w, "%s%s  (truncated)\n", pad, name)
	default:
		fmt.Fprintf(w, "%s%s\n", pad, name)
	}
	if !show {
		return
	}
	for _, c := range n.Children {
		printNode(w, c, indent+1, expanded)
	}
}
