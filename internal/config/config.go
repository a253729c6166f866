// Package config holds the glzip command line configuration.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/klauspost/cpuid/v2"

	"github.com/sanonone/glzip/pkg/csr"
)

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// OptimizeConfig holds the defaults of the optimize command.
type OptimizeConfig struct {
	// Sizes are the per-layer fanouts used as degree thresholds.
	Sizes []int `yaml:"sizes"`
}

// Config is the full configuration file.
type Config struct {
	Log      LogConfig         `yaml:"log"`
	Builder  csr.BuilderConfig `yaml:"builder"`
	Optimize OptimizeConfig    `yaml:"optimize"`

	// MetricsAddr, when set, serves Prometheus metrics on this address
	// (e.g. ":9100") for the lifetime of the command.
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultConfig returns the configuration used when no file is given.
// NumThreads 0 means one worker per logical core.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Builder: csr.BuilderConfig{
			EdgesPerChunk: csr.DefaultEdgesPerChunk,
			NumThreads:    0,
		},
		Optimize: OptimizeConfig{
			Sizes: []int{10, 10},
		},
	}
}

// Threads returns the effective worker count: the configured value, or the
// number of logical cores when it is zero.
func (c Config) Threads() int {
	if c.Builder.NumThreads > 0 {
		return c.Builder.NumThreads
	}
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return csr.DefaultNumThreads
}

// BuilderConfig returns the builder settings with the thread count resolved.
func (c Config) BuilderConfig() csr.BuilderConfig {
	b := c.Builder
	b.NumThreads = c.Threads()
	return b
}

// SlogLevel parses Log.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", c.Log.Level)
}

// Validate checks values that cannot be resolved later.
func (c Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	for i, s := range c.Optimize.Sizes {
		if s < 0 {
			return fmt.Errorf("optimize.sizes[%d] is negative: %d", i, s)
		}
	}
	return nil
}
