package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
)

// GeneratePDF renders a stored report to a PDF at outputPath (derived
// from the label inside the reports dir when empty). If PDF rendering
// fails, the markdown source is written next to it instead and that
// path is returned; report generation never fails outright over a
// rendering problem.
func (m *Manager) GeneratePDF(label, outputPath string) (string, error) {
	r, err := m.Get(label)
	if err != nil {
		return "", err
	}
	if r == nil {
		return "", fmt.Errorf("report %q does not exist", NormalizeLabel(label))
	}
	if outputPath == "" {
		outputPath = filepath.Join(m.dir, r.Label+".pdf")
	}

	if err := renderPDF(r, outputPath); err != nil {
		m.logger.Error("pdf rendering failed, writing markdown instead",
			zap.String("label", r.Label), zap.Error(err))
		mdPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".md"
		if werr := os.WriteFile(mdPath, []byte(r.Markdown()), 0o644); werr != nil {
			return "", fmt.Errorf("pdf failed (%v) and markdown fallback failed: %w", err, werr)
		}
		return mdPath, nil
	}
	m.logger.Info("generated pdf report", zap.String("path", outputPath))
	return outputPath, nil
}

// headerSizes maps markdown header levels to font sizes.
var headerSizes = [6]float64{20, 16, 14, 12, 12, 12}

func renderPDF(r *Report, outputPath string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.MultiCell(0, 10, tr(r.Title), "", "C", false)
	pdf.Ln(4)

	if r.Abstract != "" {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.MultiCell(0, 6, tr(r.Abstract), "", "C", false)
		pdf.Ln(6)
	}

	for _, label := range r.SectionOrder {
		section, ok := r.Sections[label]
		if !ok {
			continue
		}
		size := headerSizes[clampLevel(section.HeaderLevel)-1]
		pdf.SetFont("Helvetica", "B", size)
		pdf.MultiCell(0, 8, tr(section.Header), "", "L", false)
		pdf.Ln(1)
		writeMarkdownBody(pdf, tr, section.Content)
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.Ln(6)
	pdf.MultiCell(0, 5, tr("Generated by Bobby"), "", "C", false)

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

// writeMarkdownBody renders a small markdown subset: headers, bullet
// lists, and plain paragraphs. Inline emphasis markers are stripped.
func writeMarkdownBody(pdf *fpdf.Fpdf, tr func(string) string, content string) {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			pdf.Ln(3)
		case strings.HasPrefix(trimmed, "#"):
			level := 0
			for level < len(trimmed) && trimmed[level] == '#' {
				level++
			}
			pdf.SetFont("Helvetica", "B", headerSizes[clampLevel(level)-1])
			pdf.MultiCell(0, 7, tr(strings.TrimSpace(trimmed[level:])), "", "L", false)
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(0, 6, tr("  • "+stripEmphasis(trimmed[2:])), "", "L", false)
		case trimmed == "---":
			pdf.Ln(2)
			x, y := pdf.GetXY()
			pageWidth, _ := pdf.GetPageSize()
			pdf.Line(x, y, pageWidth-20, y)
			pdf.Ln(3)
		default:
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(0, 6, tr(stripEmphasis(trimmed)), "", "L", false)
		}
	}
}

func stripEmphasis(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}
