package pull

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samshapley/bobby/internal/importer"
	"github.com/samshapley/bobby/internal/police"
)

func TestFilterCities(t *testing.T) {
	cities := DefaultCities()

	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{"Empty", "", []string{"london", "manchester", "birmingham", "leeds", "glasgow", "liverpool", "newcastle", "cardiff"}},
		{"Single", "london", []string{"london"}},
		{"CommaSeparated", "london, Manchester", []string{"london", "manchester"}},
		{"NoMatchKeepsAll", "atlantis", []string{"london", "manchester", "birmingham", "leeds", "glasgow", "liverpool", "newcastle", "cardiff"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterCities(cities, tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d cities, want %d", len(got), len(tt.want))
			}
			for i, name := range tt.want {
				if got[i].Name != name {
					t.Errorf("city[%d] = %q, want %q", i, got[i].Name, name)
				}
			}
		})
	}
}

// fakeAPI serves the handful of endpoints one small run touches.
func fakeAPI(t *testing.T) *police.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/crimes-street-dates", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"date":"2023-01"}]`))
	})
	mux.HandleFunc("/forces", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"metropolitan","name":"Metropolitan Police"}]`))
	})
	mux.HandleFunc("/crimes-street/all-crime", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"category":"burglary","month":"2023-01","location":{"latitude":"51.5","street":{"id":123,"name":"Oxford St"}}}]`))
	})
	mux.HandleFunc("/outcomes-at-location", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"category":{"code":"charged","name":"Offender charged"},"date":"2023-02"}]`))
	})
	mux.HandleFunc("/crime-categories", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"url":"all-crime","name":"All crime"}]`))
	})
	mux.HandleFunc("/crime-last-updated", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"date":"2023-01-15"}`))
	})
	mux.HandleFunc("/stops-force", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"age_range":"18-24","outcome":"Arrest","type":"Person search"}]`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return police.NewClientWithConfig(police.ClientConfig{BaseURL: srv.URL})
}

func TestRunWritesFilesManifestAndMetadata(t *testing.T) {
	dir := t.TempDir()
	runner := NewRunner(fakeAPI(t), nil)

	result, err := runner.Run(context.Background(), Options{
		OutputDir:    dir,
		Cities:       "london",
		Crimes:       true,
		Stops:        true,
		SaveMetadata: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.RunID == "" {
		t.Error("expected a run id")
	}

	wantFiles := []string{
		"crimes_london_2023-01.csv",
		"outcomes_london_2023-01.csv",
		"crime_categories_2023-01.csv",
		"crime_last_updated_2023-01.csv",
		"stops_force_metropolitan_2023-01.csv",
	}
	got := make(map[string]bool)
	for _, path := range result.Files {
		got[filepath.Base(path)] = true
	}
	for _, name := range wantFiles {
		if !got[name] {
			t.Errorf("missing expected file %s (have %v)", name, result.Files)
		}
	}

	// Manifest routes the stops_force file, which filename inference
	// cannot.
	manifest, err := importer.LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if manifest == nil {
		t.Fatal("expected a manifest to be written")
	}
	entry, ok := manifest.Lookup("stops_force_metropolitan_2023-01.csv")
	if !ok {
		t.Fatal("manifest missing stops_force entry")
	}
	if entry.Table != "stops" || entry.Metadata["stop_type"] != "standard" || entry.Metadata["force_id"] != "metropolitan" {
		t.Errorf("unexpected manifest entry: %+v", entry)
	}
	if manifest.RunID != result.RunID {
		t.Errorf("manifest run id %q != result run id %q", manifest.RunID, result.RunID)
	}

	// Metadata sidecar.
	data, err := os.ReadFile(filepath.Join(dir, MetadataName))
	if err != nil {
		t.Fatalf("metadata sidecar missing: %v", err)
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("metadata not valid JSON: %v", err)
	}
	if meta.RunID != result.RunID {
		t.Errorf("metadata run id = %q, want %q", meta.RunID, result.RunID)
	}
	if len(meta.CitiesProcessed) != 1 || meta.CitiesProcessed[0] != "london" {
		t.Errorf("cities processed = %v", meta.CitiesProcessed)
	}
	if meta.FilesExtracted != len(result.Files) {
		t.Errorf("files extracted = %d, want %d", meta.FilesExtracted, len(result.Files))
	}
}

func TestRunFlattensNestedPayloads(t *testing.T) {
	dir := t.TempDir()
	runner := NewRunner(fakeAPI(t), nil)

	_, err := runner.Run(context.Background(), Options{
		OutputDir: dir,
		Cities:    "london",
		Crimes:    true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "crimes_london_2023-01.csv"))
	if err != nil {
		t.Fatal(err)
	}
	header := strings.SplitN(string(data), "\n", 2)[0]
	for _, col := range []string{"location_latitude", "location_street_id", "location_street_name"} {
		if !strings.Contains(header, col) {
			t.Errorf("header %q missing flattened column %q", header, col)
		}
	}
}

func TestRunSurvivesEndpointFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/crimes-street-dates", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"date":"2023-01"}]`))
	})
	mux.HandleFunc("/crimes-street/all-crime", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := police.NewClientWithConfig(police.ClientConfig{BaseURL: srv.URL})

	dir := t.TempDir()
	result, err := NewRunner(client, nil).Run(context.Background(), Options{
		OutputDir: dir,
		Cities:    "london",
		Crimes:    true,
	})
	if err != nil {
		t.Fatalf("Run must not fail on a bad endpoint: %v", err)
	}
	for _, path := range result.Files {
		if strings.HasPrefix(filepath.Base(path), "crimes_london") {
			t.Errorf("failed endpoint must not produce a file, got %s", path)
		}
	}
}
