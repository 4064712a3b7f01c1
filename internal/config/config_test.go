package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	if cfg.Mode != ModeRun {
		t.Errorf("default mode = %s, want %s", cfg.Mode, ModeRun)
	}
	if cfg.Bench.Warmup != 2 || cfg.Bench.Iterations != 10 {
		t.Errorf("default bench = %d/%d, want 2/10", cfg.Bench.Warmup, cfg.Bench.Iterations)
	}
	if !cfg.Bench.Verify {
		t.Error("equivalence verification should default to enabled")
	}
}

func TestResolve_DerivesPathsFromDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/tmp/vb"
	cfg.Resolve()

	if cfg.Archive.Path != filepath.Join("/tmp/vb", "history.db") {
		t.Errorf("archive path = %s", cfg.Archive.Path)
	}
	if cfg.Report.OutputDir != filepath.Join("/tmp/vb", "reports") {
		t.Errorf("report output dir = %s", cfg.Report.OutputDir)
	}
}

func TestResolve_LocalPublishPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Publish.Type = "local"
	cfg.Resolve()

	if cfg.Publish.Path == "" {
		t.Error("local publish should derive a default path")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "benchmark" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"zero pool", func(c *Config) { c.Database.PoolSize = 0 }},
		{"zero students", func(c *Config) { c.Scale.Students = 0 }},
		{"negative enrollments", func(c *Config) { c.Scale.Enrollments = -1 }},
		{"negative warmup", func(c *Config) { c.Bench.Warmup = -1 }},
		{"zero iterations", func(c *Config) { c.Bench.Iterations = 0 }},
		{"bad format", func(c *Config) { c.Report.Format = "csv" }},
		{"bad publish type", func(c *Config) { c.Publish.Type = "ftp" }},
		{"s3 without bucket", func(c *Config) { c.Publish.Type = "s3" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Resolve()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
mode: run
data_dir: /tmp/vb-test
database:
  dsn: postgres://bench:bench@db:5432/bench
  pool_size: 8
scale:
  students: 500
  courses: 20
  classes: 50
  enrollments: 5000
bench:
  warmup: 1
  iterations: 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.DSN != "postgres://bench:bench@db:5432/bench" {
		t.Errorf("dsn = %s", cfg.Database.DSN)
	}
	if cfg.Database.PoolSize != 8 {
		t.Errorf("pool_size = %d, want 8", cfg.Database.PoolSize)
	}
	if cfg.Scale.Enrollments != 5000 {
		t.Errorf("enrollments = %d, want 5000", cfg.Scale.Enrollments)
	}
	if cfg.Bench.Iterations != 5 {
		t.Errorf("iterations = %d, want 5", cfg.Bench.Iterations)
	}

	// Unset fields keep defaults
	if cfg.Bench.QueryTimeout != 5*time.Minute {
		t.Errorf("query_timeout = %v, want default 5m", cfg.Bench.QueryTimeout)
	}
}

func TestLoadFromFile_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("mode = \"run\""), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VIEWBENCH_DSN", "postgres://env@localhost/env")
	t.Setenv("VIEWBENCH_SCALE_ENROLLMENTS", "250000")
	t.Setenv("VIEWBENCH_ITERATIONS", "25")
	t.Setenv("VIEWBENCH_QUERY_TIMEOUT", "90s")
	t.Setenv("VIEWBENCH_PUBLISH_TYPE", "s3")
	t.Setenv("VIEWBENCH_S3_BUCKET", "bench-results")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if cfg.Database.DSN != "postgres://env@localhost/env" {
		t.Errorf("dsn = %s", cfg.Database.DSN)
	}
	if cfg.Scale.Enrollments != 250000 {
		t.Errorf("enrollments = %d, want 250000", cfg.Scale.Enrollments)
	}
	if cfg.Bench.Iterations != 25 {
		t.Errorf("iterations = %d, want 25", cfg.Bench.Iterations)
	}
	if cfg.Bench.QueryTimeout != 90*time.Second {
		t.Errorf("query_timeout = %v, want 90s", cfg.Bench.QueryTimeout)
	}
	if cfg.Publish.Type != "s3" || cfg.Publish.S3.Bucket != "bench-results" {
		t.Errorf("publish = %s/%s", cfg.Publish.Type, cfg.Publish.S3.Bucket)
	}
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "vb")
	cfg.Resolve()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	if _, err := os.Stat(cfg.Report.OutputDir); err != nil {
		t.Errorf("report output dir not created: %v", err)
	}
}
