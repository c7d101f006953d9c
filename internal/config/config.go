// Package config loads noesis configuration from YAML with environment
// overrides for provider credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"noesis/internal/oracle"
)

// Config holds all noesis configuration.
type Config struct {
	// Oracle configuration
	Oracle OracleConfig `yaml:"oracle"`

	// Explorer configuration
	Explorer ExplorerConfig `yaml:"explorer"`

	// Enrichment pipeline configuration
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Snapshot store configuration
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// OracleConfig configures the reasoning service client.
type OracleConfig struct {
	Provider string `yaml:"provider"` // anthropic, openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// ExplorerConfig configures prerequisite exploration.
type ExplorerConfig struct {
	MaxDepth    int  `yaml:"max_depth"`
	Parallel    bool `yaml:"parallel"`
	MaxInFlight int  `yaml:"max_in_flight"`
}

// PipelineConfig configures the enrichment pipeline.
type PipelineConfig struct {
	// SkipVisual leaves out the visual design stage; the narrative then
	// falls back to default scene durations.
	SkipVisual bool `yaml:"skip_visual"`
}

// StoreConfig configures the snapshot store.
type StoreConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	Debug      bool     `yaml:"debug"`
	Level      string   `yaml:"level"` // debug, info, warn, error
	Categories []string `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Oracle: OracleConfig{
			Timeout: "120s",
		},
		Explorer: ExplorerConfig{
			MaxDepth:    4,
			MaxInFlight: 4,
		},
		Store: StoreConfig{
			Enabled:      true,
			DatabasePath: "data/noesis.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults;
// environment variables override provider credentials either way.
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

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides. Checks run in
// reverse preference order so Anthropic wins when several keys are set.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Oracle.APIKey = key
		c.Oracle.Provider = "gemini"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Oracle.APIKey = key
		c.Oracle.Provider = "openai"
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Oracle.APIKey = key
		c.Oracle.Provider = "anthropic"
	}
	if path := os.Getenv("NOESIS_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// OracleSettings converts the oracle section into client factory settings.
func (c *Config) OracleSettings() oracle.Settings {
	return oracle.Settings{
		Provider: oracle.Provider(c.Oracle.Provider),
		APIKey:   c.Oracle.APIKey,
		BaseURL:  c.Oracle.BaseURL,
		Model:    c.Oracle.Model,
		Timeout:  c.OracleTimeout(),
	}
}

// OracleTimeout returns the oracle timeout as a duration.
func (c *Config) OracleTimeout() time.Duration {
	d, err := time.ParseDuration(c.Oracle.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}
