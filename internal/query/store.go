// Package query runs SQL against the consolidated database and
// renders, exports, and describes results.
package query

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrNoDatabase is returned when the database file does not exist.
var ErrNoDatabase = fmt.Errorf("database not found")

// Store wraps read access to the SQLite database.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open opens an existing database. A missing file is an error; the
// query surface never creates databases.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w at %s", ErrNoDatabase, path)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db, path: path, logger: logger}, nil
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Result is one query's output with every value rendered as text.
type Result struct {
	Columns []string
	Rows    [][]string
}

// Run executes a query. When limit is positive and the query carries
// no LIMIT clause of its own, one is appended.
func (s *Store) Run(query string, limit int) (*Result, error) {
	query = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}
	if limit > 0 && !strings.Contains(strings.ToLower(query), "limit") {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	s.logger.Debug("running query", zap.String("sql", query))

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func scanAll(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	result := &Result{Columns: cols}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = renderValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return result, nil
}

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// TableInfo summarizes one table.
type TableInfo struct {
	Name     string
	RowCount int
	Columns  []string
}

// Tables lists user tables with row counts and column names.
func (s *Store) Tables() ([]TableInfo, error) {
	rows, err := s.db.Query(
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	infos := make([]TableInfo, 0, len(names))
	for _, name := range names {
		info := TableInfo{Name: name}
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + quoteIdent(name)).Scan(&info.RowCount); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		cols, err := s.columnNames(name)
		if err != nil {
			return nil, err
		}
		info.Columns = cols
		infos = append(infos, info)
	}
	return infos, nil
}

func (s *Store) columnNames(table string) ([]string, error) {
	rows, err := s.db.Query("PRAGMA table_info(" + quoteIdent(table) + ")")
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt any
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ColumnInfo is one PRAGMA table_info row.
type ColumnInfo struct {
	Name    string
	Type    string
	NotNull bool
	PK      bool
}

// TableDescription is a table's column layout plus a few sample rows.
type TableDescription struct {
	Name     string
	RowCount int
	Columns  []ColumnInfo
	Sample   *Result
}

// SampleRows is how many rows Describe fetches for preview.
const SampleRows = 5

// Describe returns a table's columns and a small sample of its rows.
func (s *Store) Describe(table string) (*TableDescription, error) {
	exists := 0
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("table %s does not exist", table)
	}

	desc := &TableDescription{Name: table}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + quoteIdent(table)).Scan(&desc.RowCount); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", table, err)
	}

	rows, err := s.db.Query("PRAGMA table_info(" + quoteIdent(table) + ")")
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt any
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		desc.Columns = append(desc.Columns, ColumnInfo{
			Name: name, Type: colType, NotNull: notNull != 0, PK: pk != 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sample, err := s.Run("SELECT * FROM "+quoteIdent(table), SampleRows)
	if err != nil {
		return nil, err
	}
	desc.Sample = sample
	return desc, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
