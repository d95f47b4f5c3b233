package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Manager persists reports as one JSON file per report under a
// directory, keyed by normalized label.
type Manager struct {
	dir    string
	logger *zap.Logger
}

// NewManager creates the reports directory if needed.
func NewManager(dir string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	return &Manager{dir: dir, logger: logger}, nil
}

// Dir returns the reports directory.
func (m *Manager) Dir() string { return m.dir }

// IsValidLabel reports whether label is already snake_case.
func IsValidLabel(label string) bool {
	if label == "" {
		return false
	}
	for _, r := range label {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

// NormalizeLabel converts an arbitrary string to snake_case:
// lowercase, non-alphanumerics to single underscores, trimmed. An
// empty result gets a timestamped placeholder.
func NormalizeLabel(label string) string {
	var sb strings.Builder
	for _, r := range label {
		if r > 127 {
			continue
		}
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			sb.WriteRune(r + ('a' - 'A'))
		default:
			sb.WriteRune('_')
		}
	}
	out := sb.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	out = strings.Trim(out, "_")
	if out == "" {
		out = fmt.Sprintf("report_%d", time.Now().Unix())
	}
	return out
}

func (m *Manager) path(label string) string {
	return filepath.Join(m.dir, label+".json")
}

// Get loads one report by label. Returns (nil, nil) when absent.
func (m *Manager) Get(label string) (*Report, error) {
	data, err := os.ReadFile(m.path(NormalizeLabel(label)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", label, err)
	}
	if r.Sections == nil {
		r.Sections = map[string]*Section{}
	}
	return &r, nil
}

// Save writes the report's JSON file.
func (m *Manager) Save(r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(m.path(r.Label), data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// CreateOrUpdate creates a report, or updates title/abstract when one
// with the same normalized label already exists.
func (m *Manager) CreateOrUpdate(title, label, abstract string) (*Report, error) {
	label = NormalizeLabel(label)
	existing, err := m.Get(label)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Update(title, abstract)
		if err := m.Save(existing); err != nil {
			return nil, err
		}
		m.logger.Info("updated report", zap.String("label", label))
		return existing, nil
	}
	r := NewReport(title, label, abstract)
	if err := m.Save(r); err != nil {
		return nil, err
	}
	m.logger.Info("created report", zap.String("label", label))
	return r, nil
}

// UpsertSection adds or updates a section on an existing report.
func (m *Manager) UpsertSection(reportLabel, header string, headerLevel int, content, sectionLabel string) (*Report, error) {
	r, err := m.Get(reportLabel)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("report %q does not exist", NormalizeLabel(reportLabel))
	}
	sectionLabel = NormalizeLabel(sectionLabel)
	if !r.UpdateSection(sectionLabel, header, headerLevel, content) {
		r.AddSection(NewSection(header, headerLevel, content, sectionLabel))
	}
	if err := m.Save(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes a report's JSON file. Returns false when no such
// report exists.
func (m *Manager) Delete(label string) (bool, error) {
	err := os.Remove(m.path(NormalizeLabel(label)))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete report: %w", err)
	}
	return true, nil
}

// Summary lists one report for List.
type Summary struct {
	Label     string `json:"label"`
	Title     string `json:"title"`
	Sections  int    `json:"sections"`
	UpdatedAt string `json:"updated_at"`
}

// List returns summaries of every stored report, sorted by label.
func (m *Manager) List() ([]Summary, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}
	var out []Summary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		label := strings.TrimSuffix(entry.Name(), ".json")
		r, err := m.Get(label)
		if err != nil {
			m.logger.Warn("skipping unreadable report", zap.String("label", label), zap.Error(err))
			continue
		}
		if r == nil {
			continue
		}
		out = append(out, Summary{
			Label:     r.Label,
			Title:     r.Title,
			Sections:  len(r.Sections),
			UpdatedAt: r.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// Markdown renders a stored report. Returns "" when absent.
func (m *Manager) Markdown(label string) (string, error) {
	r, err := m.Get(label)
	if err != nil {
		return "", err
	}
	if r == nil {
		return "", fmt.Errorf("report %q does not exist", NormalizeLabel(label))
	}
	return r.Markdown(), nil
}
