package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/justyntemme/duopane/internal/config"
	"github.com/justyntemme/duopane/internal/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	logFile    string

	cfgManager *config.Manager
)

var rootCmd = &cobra.Command{
	Use:   "duopane",
	Short: "Keep two directory panels in sync with the filesystem",
	Long: `duopane lists two directories side by side and keeps both listings
current. Each panel rescans on a timer, on filesystem events and on demand.
Directories the process cannot read trigger a single access prompt and one
retry.

Examples:
  duopane watch --left ~/src --right ~/Downloads
  duopane ls ~/Documents --sort size --desc
  duopane favorites`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/duopane/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log destination: stderr, stdout or a file path")
}

// setup loads the config and initializes logging. Flags override the file.
func setup(cmd *cobra.Command) error {
	if configPath == "" {
		configPath = config.ConfigPath()
	}
	cfgManager = config.NewManagerAt(configPath)
	loadErr := cfgManager.Load()

	lc := cfgManager.Get().Logging
	if cmd.Flags().Changed("log-level") {
		lc.Level = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		lc.Format = logFormat
	}
	if cmd.Flags().Changed("log-file") {
		lc.OutputPath = logFile
	}
	if err := logging.Init(logging.Config{
		Level:      lc.Level,
		Format:     lc.Format,
		OutputPath: lc.OutputPath,
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	if loadErr != nil {
		logging.S().Warnw("config unavailable, using defaults", "path", configPath, "error", loadErr)
	}
	if err := cfgManager.ParseError(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s is invalid, using defaults: %v\n", configPath, err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
