package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/samshapley/bobby/internal/query"
	"github.com/samshapley/bobby/internal/report"
)

var reportPDFOutput string

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage reports the chat agent has written",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newReportManager()
		if err != nil {
			return err
		}
		summaries, err := m.List()
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("No reports yet. Ask the chat agent to write one.")
			return nil
		}
		result := &query.Result{Columns: []string{"label", "title", "sections", "updated"}}
		for _, s := range summaries {
			result.Rows = append(result.Rows, []string{
				s.Label, s.Title, strconv.Itoa(s.Sections), s.UpdatedAt,
			})
		}
		fmt.Print(query.RenderTable(result))
		return nil
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show [label]",
	Short: "Render a report's markdown to the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newReportManager()
		if err != nil {
			return err
		}
		md, err := m.Markdown(args[0])
		if err != nil {
			return err
		}
		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err != nil {
			fmt.Println(md)
			return nil
		}
		out, err := renderer.Render(md)
		if err != nil {
			fmt.Println(md)
			return nil
		}
		fmt.Print(out)
		return nil
	},
}

var reportsPDFCmd = &cobra.Command{
	Use:   "pdf [label]",
	Short: "Render a report to PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newReportManager()
		if err != nil {
			return err
		}
		path, err := m.GeneratePDF(args[0], reportPDFOutput)
		if err != nil {
			return err
		}
		fmt.Println("Written to", path)
		return nil
	},
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete [label]",
	Short: "Delete a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newReportManager()
		if err != nil {
			return err
		}
		ok, err := m.Delete(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no report named %q", args[0])
		}
		fmt.Println("Deleted", args[0])
		return nil
	},
}

func newReportManager() (*report.Manager, error) {
	return report.NewManager(cfg.Reports.Dir, logger)
}

func init() {
	reportsPDFCmd.Flags().StringVarP(&reportPDFOutput, "output", "o", "", "Output path (default <reports-dir>/<label>.pdf)")
	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsShowCmd)
	reportsCmd.AddCommand(reportsPDFCmd)
	reportsCmd.AddCommand(reportsDeleteCmd)
}
