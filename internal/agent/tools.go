package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samshapley/bobby/internal/query"
)

// toolRowLimit caps how many rows a single tool result carries back to
// the model. Truncation is flagged in the payload; the model can narrow
// the query if it needs more.
const toolRowLimit = 200

func objectSchema(properties map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func toolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "query_database",
			Description: "Run a read-only SQL query against the SQLite crime database and get the rows back as JSON.",
			InputSchema: objectSchema(map[string]any{
				"query": map[string]any{"type": "string", "description": "The SQL query to execute (SQLite dialect)."},
			}, "query"),
		},
		{
			Name:        "batch_query",
			Description: "Run several SQL queries in one call. Each query gets its own result or error; one failure does not stop the others.",
			InputSchema: objectSchema(map[string]any{
				"queries": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "SQL queries to execute in order.",
				},
			}, "queries"),
		},
		{
			Name:        "create_or_update_report",
			Description: "Create a report, or update the title/abstract of an existing one with the same label.",
			InputSchema: objectSchema(map[string]any{
				"title":    map[string]any{"type": "string", "description": "Human-readable report title."},
				"label":    map[string]any{"type": "string", "description": "snake_case identifier for the report."},
				"abstract": map[string]any{"type": "string", "description": "One-paragraph summary shown under the title."},
			}, "title", "label"),
		},
		{
			Name:        "create_or_update_report_section",
			Description: "Add a section to a report, or update the section with the same label. Content is markdown.",
			InputSchema: objectSchema(map[string]any{
				"report_label":  map[string]any{"type": "string", "description": "Label of the report to modify."},
				"header":        map[string]any{"type": "string", "description": "Section heading text."},
				"header_level":  map[string]any{"type": "integer", "description": "Markdown heading level, 1-6."},
				"content":       map[string]any{"type": "string", "description": "Markdown body of the section."},
				"section_label": map[string]any{"type": "string", "description": "snake_case identifier for the section."},
			}, "report_label", "header", "content", "section_label"),
		},
		{
			Name:        "create_report_pdf",
			Description: "Render a report to PDF. Falls back to writing markdown if PDF rendering fails; returns the written path.",
			InputSchema: objectSchema(map[string]any{
				"report_label": map[string]any{"type": "string", "description": "Label of the report to render."},
				"output_path":  map[string]any{"type": "string", "description": "Optional output path; defaults to the reports directory."},
			}, "report_label"),
		},
		{
			Name:        "list_reports",
			Description: "List all stored reports with their labels, titles, and section counts.",
			InputSchema: objectSchema(map[string]any{}),
		},
		{
			Name:        "get_report_preview",
			Description: "Get the full markdown of a report as it currently stands.",
			InputSchema: objectSchema(map[string]any{
				"report_label": map[string]any{"type": "string", "description": "Label of the report to preview."},
			}, "report_label"),
		},
	}
}

func (a *Agent) dispatch(ctx context.Context, name string, input json.RawMessage) (string, error) {
	switch name {
	case "query_database":
		return a.toolQuery(input)
	case "batch_query":
		return a.toolBatchQuery(input)
	case "create_or_update_report":
		return a.toolCreateReport(input)
	case "create_or_update_report_section":
		return a.toolUpsertSection(input)
	case "create_report_pdf":
		return a.toolCreatePDF(input)
	case "list_reports":
		return a.toolListReports()
	case "get_report_preview":
		return a.toolReportPreview(input)
	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
}

// queryPayload is what query tools hand back to the model.
type queryPayload struct {
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	RowCount  int        `json:"row_count"`
	Truncated bool       `json:"truncated,omitempty"`
}

func (a *Agent) runQuery(sqlText string) (*queryPayload, error) {
	store, err := query.Open(a.dbPath, a.logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	result, err := store.Run(sqlText, 0)
	if err != nil {
		return nil, err
	}
	payload := &queryPayload{
		Columns:  result.Columns,
		Rows:     result.Rows,
		RowCount: len(result.Rows),
	}
	if len(payload.Rows) > toolRowLimit {
		payload.Rows = payload.Rows[:toolRowLimit]
		payload.Truncated = true
	}
	return payload, nil
}

func (a *Agent) toolQuery(input json.RawMessage) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("bad query_database input: %w", err)
	}
	payload, err := a.runQuery(args.Query)
	if err != nil {
		return "", err
	}
	return marshalPayload(payload)
}

func (a *Agent) toolBatchQuery(input json.RawMessage) (string, error) {
	var args struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("bad batch_query input: %w", err)
	}
	if len(args.Queries) == 0 {
		return "", fmt.Errorf("batch_query needs at least one query")
	}

	type entry struct {
		Query  string        `json:"query"`
		Result *queryPayload `json:"result,omitempty"`
		Error  string        `json:"error,omitempty"`
	}
	entries := make([]entry, 0, len(args.Queries))
	for _, q := range args.Queries {
		e := entry{Query: q}
		payload, err := a.runQuery(q)
		if err != nil {
			e.Error = err.Error()
		} else {
			e.Result = payload
		}
		entries = append(entries, e)
	}
	return marshalPayload(entries)
}

func (a *Agent) toolCreateReport(input json.RawMessage) (string, error) {
	var args struct {
		Title    string `json:"title"`
		Label    string `json:"label"`
		Abstract string `json:"abstract"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("bad create_or_update_report input: %w", err)
	}
	if args.Title == "" || args.Label == "" {
		return "", fmt.Errorf("title and label are required")
	}
	r, err := a.reports.CreateOrUpdate(args.Title, args.Label, args.Abstract)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("report %q saved with %d sections", r.Label, len(r.Sections)), nil
}

func (a *Agent) toolUpsertSection(input json.RawMessage) (string, error) {
	var args struct {
		ReportLabel  string `json:"report_label"`
		Header       string `json:"header"`
		HeaderLevel  int    `json:"header_level"`
		Content      string `json:"content"`
		SectionLabel string `json:"section_label"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("bad create_or_update_report_section input: %w", err)
	}
	if args.ReportLabel == "" || args.SectionLabel == "" {
		return "", fmt.Errorf("report_label and section_label are required")
	}
	r, err := a.reports.UpsertSection(args.ReportLabel, args.Header, args.HeaderLevel, args.Content, args.SectionLabel)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("report %q now has %d sections", r.Label, len(r.Sections)), nil
}

func (a *Agent) toolCreatePDF(input json.RawMessage) (string, error) {
	var args struct {
		ReportLabel string `json:"report_label"`
		OutputPath  string `json:"output_path"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("bad create_report_pdf input: %w", err)
	}
	path, err := a.reports.GeneratePDF(args.ReportLabel, args.OutputPath)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("report written to %s", path), nil
}

func (a *Agent) toolListReports() (string, error) {
	summaries, err := a.reports.List()
	if err != nil {
		return "", err
	}
	return marshalPayload(summaries)
}

func (a *Agent) toolReportPreview(input json.RawMessage) (string, error) {
	var args struct {
		ReportLabel string `json:"report_label"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("bad get_report_preview input: %w", err)
	}
	return a.reports.Markdown(args.ReportLabel)
}

func marshalPayload(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(data), nil
}
