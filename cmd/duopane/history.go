package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justyntemme/duopane/internal/panel"
	"github.com/justyntemme/duopane/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print or clear saved navigation history",
	Long: `Print the recently visited directories and each panel's back and forward
history saved by the last watch session.

Examples:
  duopane history
  duopane history --clear`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Bool("clear", false, "Forget all history and recent directories")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := store.Open(cfgManager.Get().Store.Path)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if wipe, _ := cmd.Flags().GetBool("clear"); wipe {
		if err := db.ClearHistory(); err != nil {
			return err
		}
		fmt.Fprintln(out, "History cleared")
		return nil
	}

	recent, err := db.LoadSelections()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Recent:")
	for i, p := range recent {
		fmt.Fprintf(out, "  %2d  %s\n", i+1, p)
	}

	for _, side := range panel.Sides {
		snap, err := db.LoadHistory(side)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s back:\n", side)
		for i := len(snap.Back) - 1; i >= 0; i-- {
			fmt.Fprintf(out, "  %s\n", snap.Back[i])
		}
		fmt.Fprintf(out, "%s forward:\n", side)
		for i := len(snap.Forward) - 1; i >= 0; i-- {
			fmt.Fprintf(out, "  %s\n", snap.Forward[i])
		}
	}
	return nil
}
