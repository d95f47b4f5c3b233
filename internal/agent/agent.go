package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/samshapley/bobby/internal/query"
	"github.com/samshapley/bobby/internal/report"
	"github.com/samshapley/bobby/schema"
)

// Agent holds a conversation with the model, executing SQL and report
// tools on its behalf until it produces a final text answer.
type Agent struct {
	client  *Client
	dbPath  string
	reports *report.Manager
	logger  *zap.Logger
	system  string
	memory  []Message
}

// maxToolTurns bounds a single Chat call so a misbehaving model cannot
// loop on tool calls forever.
const maxToolTurns = 25

// NewAgent builds an agent over the given database and report store.
// The system prompt embeds the consolidated schema plus whatever
// tables actually exist right now.
func NewAgent(client *Client, dbPath string, reports *report.Manager, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		client:  client,
		dbPath:  dbPath,
		reports: reports,
		logger:  logger,
		system:  buildSystemPrompt(dbPath, logger),
	}
}

func buildSystemPrompt(dbPath string, logger *zap.Logger) string {
	var sb strings.Builder
	sb.WriteString("You are Bobby, a data analyst for UK police open data. ")
	sb.WriteString("You answer questions by querying a SQLite database and, when asked, ")
	sb.WriteString("assemble findings into structured reports.\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Always query the database rather than guessing; cite concrete numbers.\n")
	sb.WriteString("- SQLite dialect only. Dates are stored as text, months as YYYY-MM.\n")
	sb.WriteString("- When a query returns nothing, say so; never invent data.\n")
	sb.WriteString("- Keep report section labels snake_case.\n\n")
	sb.WriteString(schema.Description)

	// Best effort: the schema prose describes the full layout, the live
	// listing tells the model which tables are actually populated.
	store, err := query.Open(dbPath, logger)
	if err != nil {
		logger.Warn("system prompt built without live table list", zap.Error(err))
		return sb.String()
	}
	defer store.Close()
	infos, err := store.Tables()
	if err != nil {
		logger.Warn("system prompt built without live table list", zap.Error(err))
		return sb.String()
	}
	sb.WriteString("\nTables currently in the database:\n")
	for _, info := range infos {
		fmt.Fprintf(&sb, "- %s (%d rows): %s\n", info.Name, info.RowCount, strings.Join(info.Columns, ", "))
	}
	return sb.String()
}

// Reset clears the conversation memory.
func (a *Agent) Reset() {
	a.memory = nil
}

// History returns the accumulated conversation turns.
func (a *Agent) History() []Message {
	return a.memory
}

// Chat sends one user message and runs the tool loop until the model
// stops asking for tools, returning its final text. The conversation,
// including tool calls and results, stays in memory for later turns.
func (a *Agent) Chat(ctx context.Context, input string) (string, error) {
	checkpoint := len(a.memory)
	a.memory = append(a.memory, UserText(input))

	for turn := 0; turn < maxToolTurns; turn++ {
		resp, err := a.client.Messages(ctx, a.system, a.memory, toolDefinitions())
		if err != nil {
			// Drop the failed exchange so a retry does not replay a
			// dangling tool_use turn.
			a.memory = a.memory[:checkpoint]
			return "", err
		}

		a.memory = append(a.memory, Message{Role: "assistant", Content: resp.Content})

		calls := resp.ToolCalls()
		if resp.StopReason != "tool_use" || len(calls) == 0 {
			return resp.Text(), nil
		}

		results := make([]ContentBlock, 0, len(calls))
		for _, call := range calls {
			a.logger.Debug("tool call", zap.String("tool", call.Name))
			output, err := a.dispatch(ctx, call.Name, call.Input)
			block := ContentBlock{Type: "tool_result", ToolUseID: call.ID, Content: output}
			if err != nil {
				block.Content = err.Error()
				block.IsError = true
				a.logger.Warn("tool failed", zap.String("tool", call.Name), zap.Error(err))
			}
			results = append(results, block)
		}
		a.memory = append(a.memory, Message{Role: "user", Content: results})
	}
	return "", fmt.Errorf("conversation exceeded %d tool turns", maxToolTurns)
}
