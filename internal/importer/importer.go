package importer

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/samshapley/bobby/internal/csvio"
)

// Mode selects how files map to tables for one run.
type Mode int

const (
	// ModeConsolidated routes files into the shared schema via the
	// manifest or filename classification.
	ModeConsolidated Mode = iota
	// ModeLegacy gives every file its own slugified table, replaced
	// in full. Used when no schema is available or DDL failed.
	ModeLegacy
)

func (m Mode) String() string {
	if m == ModeLegacy {
		return "legacy"
	}
	return "consolidated"
}

// Options configures one import run.
type Options struct {
	DBPath string
	// ReplaceExisting allows importing into an existing database
	// file. When false and the file exists, the whole run is a no-op.
	ReplaceExisting bool
	// SchemaSQL is the DDL applied once before any import. Empty
	// means start in ModeLegacy.
	SchemaSQL string
	// Manifest, when present, takes precedence over filename
	// classification for the files it lists.
	Manifest *Manifest
}

// FileResult reports the outcome for one CSV file.
type FileResult struct {
	Path  string
	Table string
	Rows  int
	Err   error
}

// BatchResult aggregates one run. Mode is the mode the run actually
// used after any DDL downgrade.
type BatchResult struct {
	Mode      Mode
	Skipped   bool // database existed and ReplaceExisting was false
	Succeeded []FileResult
	Failed    []FileResult
}

// Importer loads CSV files into SQLite.
type Importer struct {
	logger *zap.Logger
}

// New returns an Importer.
func New(logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{logger: logger}
}

// ImportFiles loads each CSV into the database per opts. A failure on
// one file is recorded and the loop continues; only setup failures
// (opening the database) abort the run. Re-importing the same files
// appends duplicate rows into mapped tables: there is no dedup, and
// callers relying on exact counts must start from a fresh database.
func (imp *Importer) ImportFiles(paths []string, opts Options) (*BatchResult, error) {
	result := &BatchResult{Mode: ModeConsolidated}

	if _, err := os.Stat(opts.DBPath); err == nil && !opts.ReplaceExisting {
		imp.logger.Info("database exists and replace not requested, skipping import",
			zap.String("db_path", opts.DBPath))
		result.Skipped = true
		return result, nil
	}

	if dir := filepath.Dir(opts.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", opts.DBPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if opts.SchemaSQL == "" {
		result.Mode = ModeLegacy
	} else if _, err := db.Exec(opts.SchemaSQL); err != nil {
		// Downgrade this run only; the decision is made once here
		// and carried in the result, not in shared state.
		imp.logger.Error("schema initialization failed, falling back to per-file tables",
			zap.Error(err))
		result.Mode = ModeLegacy
	}

	for _, path := range paths {
		fr := imp.importOne(db, path, result.Mode, opts.Manifest)
		if fr.Err != nil {
			imp.logger.Error("failed to import file",
				zap.String("path", path), zap.Error(fr.Err))
			result.Failed = append(result.Failed, fr)
			continue
		}
		imp.logger.Info("imported file",
			zap.String("path", path),
			zap.String("table", fr.Table),
			zap.Int("rows", fr.Rows))
		result.Succeeded = append(result.Succeeded, fr)
	}
	return result, nil
}

func (imp *Importer) importOne(db *sql.DB, path string, mode Mode, manifest *Manifest) FileResult {
	fr := FileResult{Path: path}

	if _, err := os.Stat(path); err != nil {
		fr.Err = fmt.Errorf("file not found: %w", err)
		return fr
	}
	header, rows, err := csvio.ReadAll(path)
	if err != nil {
		fr.Err = err
		return fr
	}

	baseName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if mode == ModeLegacy {
		fr.Table = Slugify(baseName)
		fr.Rows, fr.Err = imp.replaceTable(db, fr.Table, header, rows)
		return fr
	}

	cls := Classification{}
	if entry, ok := manifest.Lookup(path); ok {
		cls = Classification{Table: entry.Table, Metadata: entry.Metadata, Replace: entry.Replace}
		if entry.Table == "data_updates" {
			cls.PerRowJSON = true
		}
	} else {
		cls = Classify(baseName)
	}
	fr.Table = cls.Table

	switch {
	case cls.PerRowJSON:
		fr.Rows, fr.Err = imp.insertUpdates(db, rows, cls.Metadata)
	case cls.Replace:
		header, rows = injectMetadata(header, rows, cls.Metadata)
		fr.Rows, fr.Err = imp.replaceTable(db, cls.Table, header, rows)
	default:
		header, rows = injectMetadata(header, rows, cls.Metadata)
		fr.Rows, fr.Err = imp.appendRows(db, cls.Table, header, rows)
	}
	return fr
}

// injectMetadata adds the classification's metadata columns to every
// row, overwriting any same-named CSV column.
func injectMetadata(header []string, rows []map[string]string, metadata map[string]string) ([]string, []map[string]string) {
	for key, value := range metadata {
		found := false
		for _, col := range header {
			if col == key {
				found = true
				break
			}
		}
		if !found {
			header = append(header, key)
		}
		for _, row := range rows {
			row[key] = value
		}
	}
	return header, rows
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// appendRows inserts rows into an existing consolidated table inside
// one transaction. The table's columns must cover the CSV's.
func (imp *Importer) appendRows(db *sql.DB, table string, header []string, rows []map[string]string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cols := make([]string, len(header))
	marks := make([]string, len(header))
	for i, col := range header {
		cols[i] = quoteIdent(col)
		marks[i] = "?"
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	args := make([]any, len(header))
	for _, row := range rows {
		for i, col := range header {
			args[i] = row[col]
		}
		if _, err := stmt.Exec(args...); err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit insert into %s: %w", table, err)
	}
	return len(rows), nil
}

// replaceTable drops the table and recreates it from the CSV header
// with TEXT columns, then inserts all rows.
func (imp *Importer) replaceTable(db *sql.DB, table string, header []string, rows []map[string]string) (int, error) {
	if len(header) == 0 {
		return 0, fmt.Errorf("cannot create table %s from a headerless file", table)
	}
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS " + quoteIdent(table)); err != nil {
		return 0, fmt.Errorf("failed to drop %s: %w", table, err)
	}
	cols := make([]string, len(header))
	marks := make([]string, len(header))
	for i, col := range header {
		cols[i] = quoteIdent(col) + " TEXT"
		marks[i] = "?"
	}
	if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE %s (%s)",
		quoteIdent(table), strings.Join(cols, ", "))); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", table, err)
	}

	insertCols := make([]string, len(header))
	for i, col := range header {
		insertCols[i] = quoteIdent(col)
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(insertCols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	args := make([]any, len(header))
	for _, row := range rows {
		for i, col := range header {
			args[i] = row[col]
		}
		if _, err := stmt.Exec(args...); err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit %s: %w", table, err)
	}
	return len(rows), nil
}

// insertUpdates writes each row into data_updates with the full row
// serialized as JSON in the details column.
func (imp *Importer) insertUpdates(db *sql.DB, rows []map[string]string, metadata map[string]string) (int, error) {
	dataType := metadata["data_type"]
	if dataType == "" {
		dataType = "crime"
	}
	dataDate := metadata["data_date"]
	now := time.Now().Format(time.RFC3339)

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT INTO data_updates (data_type, data_date, update_date, details) VALUES (?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare data_updates insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		details, err := json.Marshal(row)
		if err != nil {
			return 0, fmt.Errorf("failed to encode update row: %w", err)
		}
		if _, err := stmt.Exec(dataType, dataDate, now, string(details)); err != nil {
			return 0, fmt.Errorf("failed to insert into data_updates: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit data_updates: %w", err)
	}
	return len(rows), nil
}
