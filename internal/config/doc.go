// Package config defines configuration for the webinardump CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (WEBINARDUMP_ prefix)
//   - YAML configuration file
//
// Later sources win: defaults, then the file, then the environment, then
// flags.
//
// # Structure
//
//	type Config struct {
//	    TargetDir   string
//	    Concurrency int
//	    Timeout     time.Duration
//	    Sleepy      bool
//	    RateLimit   float64
//	    Headers     map[string]string
//	    FFmpeg      string
//	    Archive     string
//	    MetricsAddr string
//	    Tracing     bool
//	    Retry       RetryConfig
//	    Log         LogConfig
//	}
package config
