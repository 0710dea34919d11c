package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/justyntemme/duopane/internal/fs"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List one directory the way a panel shows it",
	Long: `List a directory once, folders first, in the requested order.

Examples:
  duopane ls
  duopane ls ~/Downloads --sort date --desc
  duopane ls /etc --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func init() {
	lsCmd.Flags().String("sort", "", "Sort key: name, date, size, type, permissions, owner (default from config)")
	lsCmd.Flags().Bool("desc", false, "Reverse the sort direction")
	lsCmd.Flags().BoolP("all", "a", false, "Include hidden entries")
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	cfg := cfgManager.Get()
	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()

	input := "."
	if len(args) == 1 {
		input = args[0]
	}
	path, err := fs.Canonicalize(input, cwd, home)
	if err != nil {
		return err
	}

	keyName, _ := cmd.Flags().GetString("sort")
	ascending := cfg.Panels.SortAscending
	if keyName == "" {
		keyName = cfg.Panels.DefaultSort
	} else {
		ascending = true
	}
	key, err := fs.ParseSortKey(keyName)
	if err != nil {
		return err
	}
	if desc, _ := cmd.Flags().GetBool("desc"); desc {
		ascending = false
	}
	all, _ := cmd.Flags().GetBool("all")

	entries, err := fs.NewScanner().Scan(path, fs.ScanOptions{ShowHidden: all || cfg.Panels.ShowHidden})
	if err != nil {
		return err
	}
	printEntries(cmd.OutOrStdout(), fs.Sort(entries, key, ascending))
	return nil
}
