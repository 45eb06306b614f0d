package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/idlesign/webinardump/internal/logger"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "WEBINARDUMP_"

// Config defines configuration for the webinardump CLI.
type Config struct {
	TargetDir   string            `env:"TARGET_DIR"`
	Concurrency int               `env:"CONCURRENCY"`
	Timeout     time.Duration     `env:"TIMEOUT"`
	Sleepy      bool              `env:"SLEEPY"`
	RateLimit   float64           `env:"RATE_LIMIT"`
	Headers     map[string]string `env:"HEADERS"`
	FFmpeg      string            `env:"FFMPEG"`
	Archive     string            `env:"ARCHIVE"`
	MetricsAddr string            `env:"METRICS_ADDR"`
	Tracing     bool              `env:"TRACING"`
	Retry       RetryConfig       `envPrefix:"RETRY_"`
	Log         LogConfig         `envPrefix:"LOG_"`
}

// RetryConfig defines retry behavior for server errors.
type RetryConfig struct {
	Attempts   int           `env:"ATTEMPTS"`
	Backoff    time.Duration `env:"BACKOFF"`
	MaxBackoff time.Duration `env:"MAX_BACKOFF"`
}

// LogConfig defines logging output.
type LogConfig struct {
	Level  string `env:"LEVEL"`
	Format string `env:"FORMAT"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		TargetDir:   ".",
		Concurrency: 10,
		Timeout:     3 * time.Second,
		FFmpeg:      "ffmpeg",
		Retry: RetryConfig{
			Attempts:   3,
			Backoff:    100 * time.Millisecond,
			MaxBackoff: 2 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logger.FormatText,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	TargetDir   string            `yaml:"target_dir"`
	Concurrency int               `yaml:"concurrency"`
	Timeout     string            `yaml:"timeout"`
	Sleepy      bool              `yaml:"sleepy"`
	RateLimit   float64           `yaml:"rate_limit"`
	Headers     map[string]string `yaml:"headers"`
	FFmpeg      string            `yaml:"ffmpeg"`
	Archive     string            `yaml:"archive"`
	MetricsAddr string            `yaml:"metrics_addr"`
	Tracing     bool              `yaml:"tracing"`
	Retry       yamlRetryConfig   `yaml:"retry"`
	Log         LogConfig         `yaml:"log"`
}

type yamlRetryConfig struct {
	Attempts   int    `yaml:"attempts"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"max_backoff"`
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	override := Config{
		TargetDir:   yc.TargetDir,
		Concurrency: yc.Concurrency,
		Sleepy:      yc.Sleepy,
		RateLimit:   yc.RateLimit,
		Headers:     yc.Headers,
		FFmpeg:      yc.FFmpeg,
		Archive:     yc.Archive,
		MetricsAddr: yc.MetricsAddr,
		Tracing:     yc.Tracing,
		Retry:       RetryConfig{Attempts: yc.Retry.Attempts},
		Log:         yc.Log,
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"timeout", yc.Timeout, &override.Timeout},
		{"retry.backoff", yc.Retry.Backoff, &override.Retry.Backoff},
		{"retry.max_backoff", yc.Retry.MaxBackoff, &override.Retry.MaxBackoff},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = v
	}

	return Default().Merge(override), nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the WEBINARDUMP_ prefix; unset ones leave the
// current value alone.
func (c *Config) LoadFromEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.TargetDir == "" {
		return errors.New("config: target dir is required")
	}
	if c.Concurrency <= 0 {
		return errors.New("config: concurrency must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	if c.RateLimit < 0 {
		return errors.New("config: rate limit must not be negative")
	}
	if c.Retry.Attempts < 0 {
		return errors.New("config: retry attempts must not be negative")
	}
	if c.Retry.Backoff < 0 || c.Retry.MaxBackoff < 0 {
		return errors.New("config: retry backoff must not be negative")
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Log.Format != logger.FormatText && c.Log.Format != logger.FormatJSON {
		return fmt.Errorf("config: unknown log format: %q", c.Log.Format)
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored; headers are merged key by key.
func (c Config) Merge(override Config) Config {
	if override.TargetDir != "" {
		c.TargetDir = override.TargetDir
	}
	if override.Concurrency != 0 {
		c.Concurrency = override.Concurrency
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.Sleepy {
		c.Sleepy = override.Sleepy
	}
	if override.RateLimit != 0 {
		c.RateLimit = override.RateLimit
	}
	if len(override.Headers) > 0 {
		headers := make(map[string]string, len(c.Headers)+len(override.Headers))
		for k, v := range c.Headers {
			headers[k] = v
		}
		for k, v := range override.Headers {
			headers[k] = v
		}
		c.Headers = headers
	}
	if override.FFmpeg != "" {
		c.FFmpeg = override.FFmpeg
	}
	if override.Archive != "" {
		c.Archive = override.Archive
	}
	if override.MetricsAddr != "" {
		c.MetricsAddr = override.MetricsAddr
	}
	if override.Tracing {
		c.Tracing = override.Tracing
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Backoff != 0 {
		c.Retry.Backoff = override.Retry.Backoff
	}
	if override.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	if override.Log.Level != "" {
		c.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		c.Log.Format = override.Log.Format
	}
	return c
}
