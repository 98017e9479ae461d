// Package config loads RuvScan configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Rationale provider names accepted in configuration.
const (
	RationaleKeyword = "keyword"
	RationaleModel   = "model"
)

// Config holds all runtime settings.
type Config struct {
	// DataDir is where the SQLite database lives.
	DataDir string `yaml:"data_dir"`
	// GitHubToken authenticates the scanner. Empty means unauthenticated.
	GitHubToken string `yaml:"github_token"`
	// OpenAIAPIKey authenticates the embedding provider and the
	// model-backed rationale provider.
	OpenAIAPIKey string `yaml:"openai_api_key"`
	// Rationale selects the rationale provider: "keyword" (deterministic,
	// default) or "model".
	Rationale string `yaml:"rationale"`
}

// Default returns the built-in defaults.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:   filepath.Join(home, ".ruvscan"),
		Rationale: RationaleKeyword,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ruvscan", "config.yaml")
}

// Load reads the config file at path (a missing file is fine, defaults
// apply) and then applies environment overrides: RUVSCAN_DATA_DIR,
// GITHUB_TOKEN, OPENAI_API_KEY, RUVSCAN_RATIONALE.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file, defaults + env only.
	case err != nil:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if v := os.Getenv("RUVSCAN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHubToken = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("RUVSCAN_RATIONALE"); v != "" {
		cfg.Rationale = v
	}

	if cfg.Rationale == "" {
		cfg.Rationale = RationaleKeyword
	}
	if cfg.Rationale != RationaleKeyword && cfg.Rationale != RationaleModel {
		return Config{}, fmt.Errorf("config: unknown rationale provider %q (want %s or %s)",
			cfg.Rationale, RationaleKeyword, RationaleModel)
	}

	return cfg, nil
}
