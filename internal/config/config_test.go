package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	content := `
service:
  name: "test-pipeline"
  health_port: "9000"
database:
  path: "/tmp/test.duckdb"
paths:
  raw_dir: "/tmp/raw"
  export_dir: "/tmp/out"
  log_dir: "/tmp/logs"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Service.Name != "test-pipeline" {
		t.Errorf("expected service name test-pipeline, got %s", cfg.Service.Name)
	}
	if cfg.Service.HealthPort != "9000" {
		t.Errorf("expected health port 9000, got %s", cfg.Service.HealthPort)
	}
	if cfg.Database.Path != "/tmp/test.duckdb" {
		t.Errorf("expected database path /tmp/test.duckdb, got %s", cfg.Database.Path)
	}
	if cfg.Paths.RawDir != "/tmp/raw" {
		t.Errorf("expected raw dir /tmp/raw, got %s", cfg.Paths.RawDir)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  path: \"db.duckdb\"\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Service.Name != "sales-medallion" {
		t.Errorf("expected default service name, got %s", cfg.Service.Name)
	}
	if cfg.Service.HealthPort != "8094" {
		t.Errorf("expected default health port, got %s", cfg.Service.HealthPort)
	}
	if cfg.Database.Path != "db.duckdb" {
		t.Errorf("explicit value must survive defaulting, got %s", cfg.Database.Path)
	}
	if cfg.Paths.RawDir != filepath.Join("data", "raw") {
		t.Errorf("expected default raw dir, got %s", cfg.Paths.RawDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default("/srv/pipeline")

	if cfg.Database.Path != filepath.Join("/srv/pipeline", "sales.duckdb") {
		t.Errorf("unexpected database path: %s", cfg.Database.Path)
	}
	if cfg.Paths.RawDir != filepath.Join("/srv/pipeline", "data", "raw") {
		t.Errorf("unexpected raw dir: %s", cfg.Paths.RawDir)
	}
	if cfg.Paths.ExportDir != filepath.Join("/srv/pipeline", "data") {
		t.Errorf("unexpected export dir: %s", cfg.Paths.ExportDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, true},
		{"missing raw dir", func(c *Config) { c.Paths.RawDir = "" }, true},
		{"missing export dir", func(c *Config) { c.Paths.ExportDir = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(".")
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected a validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
