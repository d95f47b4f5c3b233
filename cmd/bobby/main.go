// Bobby pulls UK police open data, loads it into SQLite, and answers
// questions about it through SQL or a chat agent.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/samshapley/bobby/internal/config"
	"github.com/samshapley/bobby/internal/police"
)

var (
	// Global flags
	verbose    bool
	configPath string
	dbPath     string
	csvDir     string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bobby",
	Short: "Bobby - UK police open data toolkit",
	Long: `Bobby pulls crime, stop-and-search, force, and neighbourhood data
from data.police.uk, stages it as CSV, loads it into a consolidated
SQLite database, and lets you explore it with SQL or by chatting
with an analyst agent that writes reports.

Typical flow:
  bobby extract --cities london,leeds --import
  bobby query -q "SELECT category, COUNT(*) FROM crimes GROUP BY category"
  bobby chat`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		// Flags beat config file and environment.
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}
		if csvDir != "" {
			cfg.Database.CSVDir = csvDir
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func newPoliceClient() *police.Client {
	timeout, err := time.ParseDuration(cfg.API.Timeout)
	if err != nil {
		timeout = 0
	}
	return police.NewClientWithConfig(police.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		Timeout: timeout,
		Logger:  logger,
	})
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.bobby/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&csvDir, "csv-dir", "", "CSV staging directory")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(listTablesCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(chatCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
