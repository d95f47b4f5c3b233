// Package csvio writes API records to CSV files.
//
// Records arrive as decoded JSON objects with arbitrary nesting. Nested
// objects are flattened into parent_child column names, field names are
// unioned across all rows and sorted so the header is stable regardless
// of which fields individual records carry.
package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// FlattenSep joins parent and child keys in flattened column names.
// The importer's filename and column contracts assume this separator.
const FlattenSep = "_"

// Flatten collapses nested maps into a single-level map with
// parent_child keys. Non-map values pass through unchanged; slices and
// other composites are formatted with %v, matching the producer the
// importer was built against.
func Flatten(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	flattenInto(out, "", record)
	return out
}

func flattenInto(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + FlattenSep + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(out, key, nested)
			continue
		}
		out[key] = v
	}
}

// Save writes records to filename inside outputDir, creating the
// directory as needed, and returns the full path. Field names are the
// sorted union across all records. When flatten is true nested objects
// are collapsed first. When append is true rows are added to an
// existing file and the header is only written if the file is empty.
// Zero records is not an error; Save returns "" and writes nothing.
func Save(records []map[string]any, filename, outputDir string, flatten, appendFile bool) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(outputDir, filename)

	rows := make([]map[string]any, 0, len(records))
	fieldSet := make(map[string]struct{})
	for _, rec := range records {
		row := rec
		if flatten {
			row = Flatten(rec)
		}
		rows = append(rows, row)
		for k := range row {
			fieldSet[k] = struct{}{}
		}
	}
	fields := make([]string, 0, len(fieldSet))
	for k := range fieldSet {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	flags := os.O_CREATE | os.O_WRONLY
	if appendFile {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	writeHeader := true
	if appendFile {
		info, err := f.Stat()
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
		writeHeader = info.Size() == 0
	}

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(fields); err != nil {
			return "", fmt.Errorf("failed to write header: %w", err)
		}
	}
	record := make([]string, len(fields))
	for _, row := range rows {
		for i, field := range fields {
			record[i] = formatValue(row[field])
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return path, nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		// JSON numbers decode as float64; render integers without a
		// trailing .0 so IDs survive the round trip.
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ReadAll loads a CSV file into a header slice and row maps keyed by
// header column. Used by the importer and by tests.
func ReadAll(path string) ([]string, []map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	header := all[0]
	rows := make([]map[string]string, 0, len(all)-1)
	for _, rec := range all[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}
