package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samshapley/bobby/internal/query"
)

var (
	queryText   string
	queryFile   string
	queryLimit  int
	queryOutput string
	queryFormat string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run SQL against the database",
	Long: `Runs a SQL query against the consolidated database. Without -q or
--query-file an interactive prompt starts; statements end with a
semicolon, and "tables;", "describe <table>;", and "help;" work as
shortcuts.

Display is truncated after 20 rows; exports with -o never are.

Examples:
  bobby query -q "SELECT category, COUNT(*) n FROM crimes GROUP BY category ORDER BY n DESC"
  bobby query -q "SELECT * FROM stops" -o stops.xlsx --format excel
  bobby query`,
	RunE: runQuery,
}

var listTablesCmd = &cobra.Command{
	Use:   "list-tables",
	Short: "List tables with row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := query.Open(cfg.Database.Path, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		return printTables(store)
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe [table]",
	Short: "Show a table's columns and sample rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := query.Open(cfg.Database.Path, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		return printDescription(store, args[0])
	},
}

func init() {
	f := queryCmd.Flags()
	f.StringVarP(&queryText, "query", "q", "", "SQL to run")
	f.StringVar(&queryFile, "query-file", "", "File containing SQL to run")
	f.IntVar(&queryLimit, "limit", 0, "Append LIMIT when the query has none (0 = unlimited)")
	f.StringVarP(&queryOutput, "output", "o", "", "Export results to this file")
	f.StringVar(&queryFormat, "format", "csv", "Export format: csv, json, or excel")
}

func runQuery(cmd *cobra.Command, args []string) error {
	store, err := query.Open(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	sqlText := queryText
	if sqlText == "" && queryFile != "" {
		data, err := os.ReadFile(queryFile)
		if err != nil {
			return fmt.Errorf("failed to read query file: %w", err)
		}
		sqlText = string(data)
	}
	if sqlText == "" {
		return interactiveQuery(store)
	}

	result, err := store.Run(sqlText, queryLimit)
	if err != nil {
		return err
	}
	fmt.Print(query.RenderTable(result))

	if queryOutput != "" {
		if err := query.Export(result, queryOutput, queryFormat); err != nil {
			return err
		}
		fmt.Printf("Exported %d rows to %s\n", len(result.Rows), queryOutput)
	}
	return nil
}

func printTables(store *query.Store) error {
	infos, err := store.Tables()
	if err != nil {
		return err
	}
	result := &query.Result{Columns: []string{"table", "rows", "columns"}}
	for _, info := range infos {
		result.Rows = append(result.Rows, []string{
			info.Name, strconv.Itoa(info.RowCount), strings.Join(info.Columns, ", "),
		})
	}
	fmt.Print(query.RenderTable(result))
	return nil
}

func printDescription(store *query.Store, table string) error {
	desc, err := store.Describe(table)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%d rows)\n\n", desc.Name, desc.RowCount)

	layout := &query.Result{Columns: []string{"column", "type", "not null", "pk"}}
	for _, col := range desc.Columns {
		layout.Rows = append(layout.Rows, []string{
			col.Name, col.Type, yesNo(col.NotNull), yesNo(col.PK),
		})
	}
	fmt.Print(query.RenderTable(layout))

	if desc.Sample != nil && len(desc.Sample.Rows) > 0 {
		fmt.Println("\nSample:")
		fmt.Print(query.RenderTable(desc.Sample))
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

// interactiveQuery reads semicolon-terminated statements from stdin.
func interactiveQuery(store *query.Store) error {
	fmt.Println("Interactive SQL. Statements end with ';'. Type 'help;' for shortcuts, 'exit;' to leave.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var buf strings.Builder
	for {
		if buf.Len() == 0 {
			fmt.Print("sql> ")
		} else {
			fmt.Print("  -> ")
		}
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		buf.WriteString(scanner.Text())
		if !strings.Contains(scanner.Text(), ";") {
			buf.WriteString("\n")
			continue
		}

		statement := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(buf.String()), ";"))
		buf.Reset()
		if statement == "" {
			continue
		}

		switch lower := strings.ToLower(statement); {
		case lower == "exit" || lower == "quit":
			return nil
		case lower == "help":
			fmt.Println("  tables;            list tables")
			fmt.Println("  describe <table>;  show a table's layout and sample rows")
			fmt.Println("  exit;              leave")
			continue
		case lower == "tables":
			if err := printTables(store); err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
			}
			continue
		case strings.HasPrefix(lower, "describe "):
			if err := printDescription(store, strings.TrimSpace(statement[len("describe "):])); err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
			}
			continue
		}

		result, err := store.Run(statement, 0)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			continue
		}
		fmt.Print(query.RenderTable(result))
	}
}
