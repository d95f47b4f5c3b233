package pull

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MetadataName is the sidecar describing one extraction run.
const MetadataName = "extraction_metadata.json"

// RunMetadata is the JSON sidecar written after a run when
// SaveMetadata is set.
type RunMetadata struct {
	RunID           string   `json:"run_id"`
	ExtractionDate  string   `json:"extraction_date"`
	DatesExtracted  []string `json:"dates_extracted"`
	CitiesProcessed []string `json:"cities_processed"`
	FilesExtracted  int      `json:"files_extracted"`
	Options         Options  `json:"extraction_options"`
}

func (r *Runner) saveMetadata(opts Options, result *Result) error {
	meta := RunMetadata{
		RunID:           result.RunID,
		ExtractionDate:  time.Now().Format("2006-01-02 15:04:05"),
		DatesExtracted:  result.Dates,
		CitiesProcessed: result.Cities,
		FilesExtracted:  len(result.Files),
		Options:         opts,
	}
	data, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	path := filepath.Join(opts.OutputDir, MetadataName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}
