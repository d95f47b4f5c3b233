// Package config loads Bobby's YAML configuration with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all Bobby configuration.
type Config struct {
	// Police Data API
	API APIConfig `yaml:"api"`

	// SQLite database and CSV staging area
	Database DatabaseConfig `yaml:"database"`

	// Chat agent (Anthropic)
	Agent AgentConfig `yaml:"agent"`

	// Report storage
	Reports ReportsConfig `yaml:"reports"`
}

// APIConfig configures the data.police.uk client.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// DatabaseConfig configures where data lands.
type DatabaseConfig struct {
	Path   string `yaml:"path"`
	CSVDir string `yaml:"csv_dir"`
}

// AgentConfig configures the chat agent.
type AgentConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`
}

// ReportsConfig configures report storage.
type ReportsConfig struct {
	Dir string `yaml:"dir"`
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".bobby", "config.yaml")
	}
	return filepath.Join(home, ".bobby", "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://data.police.uk/api",
			Timeout: "120s",
		},
		Database: DatabaseConfig{
			Path:   filepath.Join("data", "police_data.db"),
			CSVDir: filepath.Join("data", "csv"),
		},
		Agent: AgentConfig{
			Model:     "claude-sonnet-4-5-20250514",
			MaxTokens: 4096,
		},
		Reports: ReportsConfig{
			Dir: "reports",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields
// defaults; environment variables override either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file, creating the directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Agent.APIKey = key
	}
	if path := os.Getenv("BOBBY_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if dir := os.Getenv("BOBBY_CSV_DIR"); dir != "" {
		c.Database.CSVDir = dir
	}
	if dir := os.Getenv("BOBBY_REPORTS_DIR"); dir != "" {
		c.Reports.Dir = dir
	}
}
