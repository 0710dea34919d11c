package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justyntemme/duopane/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a fresh default config, backing up the current one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backup, err := config.GenerateConfig(cfgManager.Path())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if backup != "" {
			fmt.Fprintf(out, "Backed up existing config to %s\n", backup)
		}
		fmt.Fprintf(out, "Wrote default config to %s\n", cfgManager.Path())
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), cfgManager.Path())
	},
}

func init() {
	configCmd.AddCommand(configGenerateCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
