package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if cfg.Context.MaxChunkSize != 1000 || cfg.Context.ChunkOverlap != 200 {
		t.Errorf("context defaults = %+v", cfg.Context)
	}
	if cfg.Embedding.Dimension != 768 || cfg.Embedding.CacheSize != 10000 {
		t.Errorf("embedding defaults = %+v", cfg.Embedding)
	}
	if cfg.Search.DefaultLimit != 10 || cfg.Search.MaxLimit != 100 {
		t.Errorf("search defaults = %+v", cfg.Search)
	}
	if cfg.Search.DefaultMinScore != 0 {
		t.Errorf("default min score = %f, want 0", cfg.Search.DefaultMinScore)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "0.0.0.0"
  port: 9090
context:
  max_chunk_size: 500
  chunk_overlap: 50
embedding:
  dimension: 256
search:
  default_limit: 20
  max_limit: 200
  default_min_score: 0.25
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Context.MaxChunkSize != 500 || cfg.Context.ChunkOverlap != 50 {
		t.Errorf("context = %+v", cfg.Context)
	}
	if cfg.Embedding.Dimension != 256 {
		t.Errorf("dimension = %d", cfg.Embedding.Dimension)
	}
	// Unset cache_size still gets a default.
	if cfg.Embedding.CacheSize != 10000 {
		t.Errorf("cache_size = %d, want default 10000", cfg.Embedding.CacheSize)
	}
	if cfg.Search.DefaultMinScore != 0.25 {
		t.Errorf("default_min_score = %f", cfg.Search.DefaultMinScore)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestLoad_ExpandsWatchDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
watch:
  directories:
    - "./notes"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("directories = %v", cfg.Watch.Directories)
	}
	want := filepath.Join(dir, "notes")
	if cfg.Watch.Directories[0] != want {
		t.Errorf("directory = %q, want %q", cfg.Watch.Directories[0], want)
	}
	if !cfg.Watch.RecursiveOrDefault() {
		t.Error("recursive should default to true")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Context.MaxChunkSize = -1 }},
		{"negative overlap", func(c *Config) { c.Context.ChunkOverlap = -1 }},
		{"overlap >= chunk size", func(c *Config) { c.Context.ChunkOverlap = c.Context.MaxChunkSize }},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = -5 }},
		{"zero default limit", func(c *Config) { c.Search.DefaultLimit = -1 }},
		{"max limit below default", func(c *Config) { c.Search.MaxLimit = 5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestRecursiveOrDefault_Explicit(t *testing.T) {
	f := false
	w := WatchConfig{Recursive: &f}
	if w.RecursiveOrDefault() {
		t.Error("explicit false should win over default")
	}
}
