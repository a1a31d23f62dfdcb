// Package config loads the pipeline configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the medallion pipeline.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Database DatabaseConfig `yaml:"database"`
	Paths    PathsConfig    `yaml:"paths"`
}

// ServiceConfig contains service-level settings.
type ServiceConfig struct {
	Name       string `yaml:"name"`
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig contains the embedded DuckDB settings.
type DatabaseConfig struct {
	// Path to the DuckDB database file shared by all stages.
	Path string `yaml:"path"`
}

// PathsConfig contains the input, export and log directories.
type PathsConfig struct {
	RawDir    string `yaml:"raw_dir"`
	ExportDir string `yaml:"export_dir"`
	LogDir    string `yaml:"log_dir"`
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every field set to its default,
// rooted at the given directory.
func Default(root string) *Config {
	cfg := &Config{
		Database: DatabaseConfig{Path: filepath.Join(root, "sales.duckdb")},
		Paths: PathsConfig{
			RawDir:    filepath.Join(root, "data", "raw"),
			ExportDir: filepath.Join(root, "data"),
			LogDir:    filepath.Join(root, "logs"),
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "sales-medallion"
	}
	if c.Service.HealthPort == "" {
		c.Service.HealthPort = "8094"
	}
	if c.Database.Path == "" {
		c.Database.Path = "sales.duckdb"
	}
	if c.Paths.RawDir == "" {
		c.Paths.RawDir = filepath.Join("data", "raw")
	}
	if c.Paths.ExportDir == "" {
		c.Paths.ExportDir = "data"
	}
	if c.Paths.LogDir == "" {
		c.Paths.LogDir = "logs"
	}
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Paths.RawDir == "" {
		return fmt.Errorf("paths.raw_dir is required")
	}
	if c.Paths.ExportDir == "" {
		return fmt.Errorf("paths.export_dir is required")
	}
	return nil
}
