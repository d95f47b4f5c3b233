package query

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// DisplayRowLimit caps how many rows render to the terminal. Exports
// are never truncated, only the on-screen table.
const DisplayRowLimit = 20

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

// RenderTable renders a result as a text table, truncating display at
// DisplayRowLimit rows with a note about the remainder.
func RenderTable(result *Result) string {
	if result == nil || len(result.Columns) == 0 {
		return "no results\n"
	}

	rows := result.Rows
	truncated := 0
	if len(rows) > DisplayRowLimit {
		truncated = len(rows) - DisplayRowLimit
		rows = rows[:DisplayRowLimit]
	}

	widths := make([]int, len(result.Columns))
	for i, col := range result.Columns {
		widths[i] = lipgloss.Width(col)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				if w := lipgloss.Width(cell); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}
	for i := range widths {
		widths[i] += 2
	}

	var sb strings.Builder
	for i, col := range result.Columns {
		sb.WriteString(headerStyle.Width(widths[i]).Render(col))
		if i < len(result.Columns)-1 {
			sb.WriteString(mutedStyle.Render("|"))
		}
	}
	sb.WriteString("\n")

	total := len(result.Columns) - 1
	for _, w := range widths {
		total += w
	}
	sb.WriteString(mutedStyle.Render(strings.Repeat("-", total)) + "\n")

	for _, row := range rows {
		for i := range result.Columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			sb.WriteString(cellStyle.Width(widths[i]).Render(cell))
			if i < len(result.Columns)-1 {
				sb.WriteString(mutedStyle.Render("|"))
			}
		}
		sb.WriteString("\n")
	}

	if truncated > 0 {
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("... %d more rows (%d total)", truncated, len(result.Rows))) + "\n")
	} else {
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("%d rows", len(result.Rows))) + "\n")
	}
	return sb.String()
}
