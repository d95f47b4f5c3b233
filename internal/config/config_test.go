package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.BaseURL != "https://data.police.uk/api" {
		t.Errorf("api base url = %q", cfg.API.BaseURL)
	}
	if cfg.Agent.MaxTokens != 4096 {
		t.Errorf("max tokens = %d", cfg.Agent.MaxTokens)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
database:
  path: /tmp/test.db
agent:
  model: claude-test
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Agent.Model != "claude-test" {
		t.Errorf("model = %q", cfg.Agent.Model)
	}
	// Unset fields keep defaults.
	if cfg.Reports.Dir != "reports" {
		t.Errorf("reports dir = %q", cfg.Reports.Dir)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("BOBBY_DB_PATH", "/tmp/override.db")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
database:
  path: /tmp/from-file.db
agent:
  api_key: from-file
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Agent.APIKey != "sk-test" {
		t.Errorf("api key = %q, want env override", cfg.Agent.APIKey)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("db path = %q, want env override", cfg.Database.Path)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Database.Path = "/tmp/saved.db"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Database.Path != "/tmp/saved.db" {
		t.Errorf("db path = %q", loaded.Database.Path)
	}
}
