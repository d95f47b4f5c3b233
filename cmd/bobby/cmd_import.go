package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samshapley/bobby/internal/importer"
	"github.com/samshapley/bobby/schema"
)

var (
	importReplaceDB  bool
	importSchemaPath string
	importLegacy     bool
)

var importCmd = &cobra.Command{
	Use:   "import [csv-dir]",
	Short: "Load staged CSV files into the SQLite database",
	Long: `Loads every CSV in the staging directory into the consolidated
database. Files are routed to tables by the import manifest the
extract step wrote, falling back to filename inference for files
without an entry.

If the database already exists the run is skipped unless --replace-db
is given. Re-importing the same files appends duplicate rows.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.Database.CSVDir
		if len(args) == 1 {
			dir = args[0]
		}
		return importDir(dir, importReplaceDB, importSchemaPath)
	},
}

func init() {
	importCmd.Flags().BoolVar(&importReplaceDB, "replace-db", false, "Allow importing into an existing database")
	importCmd.Flags().StringVar(&importSchemaPath, "schema-path", "", "Custom schema SQL file (default: built-in schema)")
	importCmd.Flags().BoolVar(&importLegacy, "legacy", false, "Skip the consolidated schema; one table per file")
}

func importDir(dir string, replaceDB bool, schemaPath string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no CSV files found in %s", dir)
	}
	sort.Strings(paths)

	schemaSQL := schema.Consolidated
	if importLegacy {
		schemaSQL = ""
	} else if schemaPath != "" {
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}
		schemaSQL = string(data)
	}

	manifest, err := importer.LoadManifest(dir)
	if err != nil {
		logger.Warn("ignoring unreadable import manifest", zap.Error(err))
		manifest = nil
	}

	imp := importer.New(logger)
	result, err := imp.ImportFiles(paths, importer.Options{
		DBPath:          cfg.Database.Path,
		ReplaceExisting: replaceDB,
		SchemaSQL:       schemaSQL,
		Manifest:        manifest,
	})
	if err != nil {
		return err
	}
	if result.Skipped {
		fmt.Printf("Database %s already exists; use --replace-db to import anyway\n", cfg.Database.Path)
		return nil
	}

	rows := 0
	for _, fr := range result.Succeeded {
		rows += fr.Rows
	}
	fmt.Printf("Imported %d files (%d rows) into %s in %s mode\n",
		len(result.Succeeded), rows, cfg.Database.Path, result.Mode)
	for _, fr := range result.Failed {
		fmt.Fprintf(os.Stderr, "  failed: %s: %v\n", filepath.Base(fr.Path), fr.Err)
	}
	if len(result.Succeeded) == 0 {
		return fmt.Errorf("all %d files failed to import", len(result.Failed))
	}
	return nil
}
