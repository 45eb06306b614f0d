package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/idlesign/webinardump/internal/config"
	whttp "github.com/idlesign/webinardump/internal/http"
	"github.com/idlesign/webinardump/internal/logger"
	"github.com/idlesign/webinardump/internal/observability"
)

// app holds the state shared by all commands.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	debug      bool
	flags      config.Config
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr}
}

// loadConfig layers defaults, the config file, the environment and flags.
func (a *app) loadConfig() (config.Config, error) {
	cfg := config.Default()

	if a.configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(a.configPath); err != nil {
			return config.Config{}, usageError{err}
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, usageError{err}
	}

	cfg = cfg.Merge(a.flags)
	if a.debug {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, usageError{err}
	}
	return cfg, nil
}

func (a *app) logger(cfg config.Config) (*slog.Logger, error) {
	return logger.New(&logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: a.stderr,
	})
}

// httpClient builds the shared client of a dump.
func httpClient(cfg config.Config, log *slog.Logger, metrics *observability.Metrics) *whttp.Client {
	headers := whttp.DefaultHeaders()
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}

	opts := whttp.DefaultOptions()
	opts.Timeout = cfg.Timeout
	opts.RetryAttempts = cfg.Retry.Attempts
	opts.RetryBackoff = cfg.Retry.Backoff
	opts.RetryMaxBackoff = cfg.Retry.MaxBackoff
	opts.RateLimit = cfg.RateLimit
	opts.Tracing = cfg.Tracing
	opts.Headers = headers
	opts.MaxIdleConnsPerHost = max(opts.MaxIdleConnsPerHost, cfg.Concurrency*2)
	opts.OnRetry = func(url string, attempt int, err error) {
		cause := "network"
		if errors.Is(err, whttp.ErrServerError) {
			cause = "server_error"
		}
		metrics.Retry(cause)
		log.Debug("retrying request",
			slog.String("url", url),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
	}

	return whttp.NewClient(opts)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}
