// Package report models markdown reports built from ordered sections,
// persisted one JSON file per report, and rendered to markdown or PDF.
package report

import (
	"fmt"
	"strings"
	"time"
)

// Section is one block of a report.
type Section struct {
	Header      string `json:"header"`
	HeaderLevel int    `json:"header_level"`
	Content     string `json:"content"`
	Label       string `json:"label"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// NewSection creates a section, clamping the header level to 1..6.
func NewSection(header string, headerLevel int, content, label string) *Section {
	now := time.Now().Format(time.RFC3339)
	return &Section{
		Header:      header,
		HeaderLevel: clampLevel(headerLevel),
		Content:     content,
		Label:       label,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}

// Update overwrites the given fields; empty header/content and a zero
// level keep the current values.
func (s *Section) Update(header string, headerLevel int, content string) {
	if header != "" {
		s.Header = header
	}
	if headerLevel != 0 {
		s.HeaderLevel = clampLevel(headerLevel)
	}
	if content != "" {
		s.Content = content
	}
	s.UpdatedAt = time.Now().Format(time.RFC3339)
}

// Markdown renders the section.
func (s *Section) Markdown() string {
	return fmt.Sprintf("%s %s\n\n%s\n\n", strings.Repeat("#", s.HeaderLevel), s.Header, s.Content)
}

// Report aggregates ordered sections under a title and abstract.
type Report struct {
	Title        string              `json:"title"`
	Label        string              `json:"label"`
	Abstract     string              `json:"abstract"`
	CreatedAt    string              `json:"created_at"`
	UpdatedAt    string              `json:"updated_at"`
	SectionOrder []string            `json:"section_order"`
	Sections     map[string]*Section `json:"sections"`
}

// NewReport creates an empty report.
func NewReport(title, label, abstract string) *Report {
	now := time.Now().Format(time.RFC3339)
	return &Report{
		Title:        title,
		Label:        label,
		Abstract:     abstract,
		CreatedAt:    now,
		UpdatedAt:    now,
		SectionOrder: []string{},
		Sections:     map[string]*Section{},
	}
}

// Update overwrites title and abstract where non-empty.
func (r *Report) Update(title, abstract string) {
	if title != "" {
		r.Title = title
	}
	if abstract != "" {
		r.Abstract = abstract
	}
	r.UpdatedAt = time.Now().Format(time.RFC3339)
}

// AddSection inserts or replaces a section by label. Returns true when
// the section is new.
func (r *Report) AddSection(section *Section) bool {
	_, exists := r.Sections[section.Label]
	if !exists {
		r.SectionOrder = append(r.SectionOrder, section.Label)
	}
	r.Sections[section.Label] = section
	r.UpdatedAt = time.Now().Format(time.RFC3339)
	return !exists
}

// UpdateSection updates an existing section in place. Returns false
// when no section has that label.
func (r *Report) UpdateSection(label, header string, headerLevel int, content string) bool {
	section, ok := r.Sections[label]
	if !ok {
		return false
	}
	section.Update(header, headerLevel, content)
	r.UpdatedAt = time.Now().Format(time.RFC3339)
	return true
}

// Markdown assembles the full report: title, italic abstract, the
// sections in order, and a generated-by footer.
func (r *Report) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# " + r.Title + "\n\n")
	if r.Abstract != "" {
		sb.WriteString("*" + r.Abstract + "*\n\n")
		sb.WriteString("---\n\n")
	}
	for _, label := range r.SectionOrder {
		if section, ok := r.Sections[label]; ok {
			sb.WriteString(section.Markdown())
		}
	}
	sb.WriteString(fmt.Sprintf("\n\n---\n\n*Generated by Bobby on %s*",
		time.Now().Format("2006-01-02 15:04")))
	return sb.String()
}
