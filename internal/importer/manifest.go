package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestName is the sidecar filename the pull layer writes next to
// its CSV output.
const ManifestName = "import_manifest.json"

// ManifestEntry records where one CSV file's rows belong, making
// classification a data lookup instead of filename inference.
type ManifestEntry struct {
	Table    string            `json:"table"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Replace  bool              `json:"replace,omitempty"`
}

// Manifest maps CSV base filenames to their destinations.
type Manifest struct {
	GeneratedAt string                   `json:"generated_at,omitempty"`
	RunID       string                   `json:"run_id,omitempty"`
	Files       map[string]ManifestEntry `json:"files"`
}

// NewManifest returns an empty manifest stamped with the current time.
func NewManifest(runID string) *Manifest {
	return &Manifest{
		GeneratedAt: time.Now().Format(time.RFC3339),
		RunID:       runID,
		Files:       make(map[string]ManifestEntry),
	}
}

// Add records the destination for a CSV path, keyed by its base name.
func (m *Manifest) Add(path string, entry ManifestEntry) {
	m.Files[filepath.Base(path)] = entry
}

// Lookup returns the entry for a CSV path, if one was recorded.
func (m *Manifest) Lookup(path string) (ManifestEntry, bool) {
	if m == nil || m.Files == nil {
		return ManifestEntry{}, false
	}
	entry, ok := m.Files[filepath.Base(path)]
	return entry, ok
}

// Save writes the manifest into dir as ManifestName.
func (m *Manifest) Save(dir string) (string, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// LoadManifest reads an import manifest from dir. A missing file is
// not an error; it returns (nil, nil) so the importer falls back to
// filename classification.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
