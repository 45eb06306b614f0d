package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.TargetDir != "." {
		t.Errorf("expected default target dir ., got %q", cfg.TargetDir)
	}
	if cfg.Concurrency != 10 {
		t.Errorf("expected default concurrency 10, got %d", cfg.Concurrency)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("expected default timeout 3s, got %v", cfg.Timeout)
	}
	if cfg.Retry.Attempts != 3 {
		t.Errorf("expected default retry attempts 3, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Backoff != 100*time.Millisecond {
		t.Errorf("expected default retry backoff 100ms, got %v", cfg.Retry.Backoff)
	}
	if cfg.Sleepy {
		t.Error("expected sleepy off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
target_dir: /srv/videos
concurrency: 4
timeout: 10s
sleepy: true
rate_limit: 2.5
headers:
  X-Token: abc
archive: s3://videos?region=eu-west-1
retry:
  attempts: 5
  backoff: 1s
  max_backoff: 30s
log:
  level: debug
  format: json
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.TargetDir != "/srv/videos" {
		t.Errorf("expected target dir /srv/videos, got %q", cfg.TargetDir)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("expected concurrency 4, got %d", cfg.Concurrency)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Timeout)
	}
	if !cfg.Sleepy {
		t.Error("expected sleepy true")
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("expected rate limit 2.5, got %v", cfg.RateLimit)
	}
	if cfg.Headers["X-Token"] != "abc" {
		t.Errorf("expected header X-Token, got %v", cfg.Headers)
	}
	if cfg.Archive != "s3://videos?region=eu-west-1" {
		t.Errorf("expected archive url, got %q", cfg.Archive)
	}
	if cfg.Retry.Attempts != 5 || cfg.Retry.Backoff != time.Second || cfg.Retry.MaxBackoff != 30*time.Second {
		t.Errorf("unexpected retry config %+v", cfg.Retry)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	if cfg.FFmpeg != "ffmpeg" {
		t.Errorf("expected default ffmpeg kept, got %q", cfg.FFmpeg)
	}
}

func TestLoadFromYAML_BadDuration(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("timeout: soon\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromFile(configPath); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WEBINARDUMP_CONCURRENCY", "32")
	t.Setenv("WEBINARDUMP_TIMEOUT", "7s")
	t.Setenv("WEBINARDUMP_SLEEPY", "true")
	t.Setenv("WEBINARDUMP_HEADERS", "X-A:1,X-B:2")
	t.Setenv("WEBINARDUMP_RETRY_ATTEMPTS", "1")
	t.Setenv("WEBINARDUMP_RETRY_BACKOFF", "500ms")
	t.Setenv("WEBINARDUMP_LOG_FORMAT", "json")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Concurrency != 32 {
		t.Errorf("expected concurrency 32, got %d", cfg.Concurrency)
	}
	if cfg.Timeout != 7*time.Second {
		t.Errorf("expected timeout 7s, got %v", cfg.Timeout)
	}
	if !cfg.Sleepy {
		t.Error("expected sleepy true")
	}
	if cfg.Headers["X-A"] != "1" || cfg.Headers["X-B"] != "2" {
		t.Errorf("unexpected headers %v", cfg.Headers)
	}
	if cfg.Retry.Attempts != 1 || cfg.Retry.Backoff != 500*time.Millisecond {
		t.Errorf("unexpected retry config %+v", cfg.Retry)
	}
	if cfg.Retry.MaxBackoff != 2*time.Second {
		t.Errorf("expected unset max backoff kept, got %v", cfg.Retry.MaxBackoff)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	if cfg.TargetDir != "." {
		t.Errorf("expected unset target dir kept, got %q", cfg.TargetDir)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	t.Setenv("WEBINARDUMP_CONCURRENCY", "many")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err == nil {
		t.Fatal("expected error for non-numeric concurrency")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid config", modify: func(c *Config) {}},
		{name: "missing target dir", modify: func(c *Config) { c.TargetDir = "" }, wantErr: true},
		{name: "invalid concurrency", modify: func(c *Config) { c.Concurrency = 0 }, wantErr: true},
		{name: "invalid timeout", modify: func(c *Config) { c.Timeout = 0 }, wantErr: true},
		{name: "negative rate limit", modify: func(c *Config) { c.RateLimit = -1 }, wantErr: true},
		{name: "negative retries", modify: func(c *Config) { c.Retry.Attempts = -1 }, wantErr: true},
		{name: "unknown log level", modify: func(c *Config) { c.Log.Level = "loud" }, wantErr: true},
		{name: "unknown log format", modify: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
		{name: "zero retries", modify: func(c *Config) { c.Retry.Attempts = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	base.TargetDir = "/videos"
	base.Headers = map[string]string{"X-A": "1", "X-B": "1"}

	override := Config{
		Concurrency: 2,
		Headers:     map[string]string{"X-B": "2"},
	}

	merged := base.Merge(override)

	if merged.TargetDir != "/videos" {
		t.Errorf("expected TargetDir preserved, got %s", merged.TargetDir)
	}
	if merged.Timeout != 3*time.Second {
		t.Errorf("expected Timeout preserved, got %v", merged.Timeout)
	}
	if merged.Concurrency != 2 {
		t.Errorf("expected Concurrency overridden to 2, got %d", merged.Concurrency)
	}
	if merged.Headers["X-A"] != "1" || merged.Headers["X-B"] != "2" {
		t.Errorf("expected headers merged, got %v", merged.Headers)
	}
	if base.Headers["X-B"] != "1" {
		t.Errorf("Merge modified base headers: %v", base.Headers)
	}
}
