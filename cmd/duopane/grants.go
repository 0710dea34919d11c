package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/justyntemme/duopane/internal/store"
)

var grantsCmd = &cobra.Command{
	Use:   "grants",
	Short: "List remembered directory access grants",
	Long: `List the directories whose access was granted at a prompt and remembered.

Examples:
  duopane grants
  duopane grants revoke ~/Private`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.DB) error {
			return listGrants(cmd.OutOrStdout(), db)
		})
	},
}

var grantsRevokeCmd = &cobra.Command{
	Use:   "revoke <path>",
	Short: "Forget the access grant for a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveArg(args[0])
		if err != nil {
			return err
		}
		return withStore(func(db *store.DB) error {
			return revokeGrant(cmd.OutOrStdout(), db, path)
		})
	},
}

func init() {
	grantsCmd.AddCommand(grantsRevokeCmd)
	rootCmd.AddCommand(grantsCmd)
}

func withStore(fn func(*store.DB) error) error {
	db, err := store.Open(cfgManager.Get().Store.Path)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func listGrants(w io.Writer, db *store.DB) error {
	paths, err := db.Grants()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintln(w, "No grants")
		return nil
	}
	for _, p := range paths {
		fmt.Fprintln(w, p)
	}
	return nil
}

func revokeGrant(w io.Writer, db *store.DB, path string) error {
	ok, err := db.HasGrant(path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no grant for %s", path)
	}
	if err := db.RevokeGrant(path); err != nil {
		return err
	}
	fmt.Fprintf(w, "Revoked %s\n", path)
	return nil
}
