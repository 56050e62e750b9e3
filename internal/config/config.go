// Package config loads render settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/born-ml/mandel/internal/device"
	"github.com/born-ml/mandel/internal/dispatch"
	"github.com/born-ml/mandel/internal/exchange"
	"github.com/born-ml/mandel/internal/grid"
	"github.com/born-ml/mandel/internal/sink"
	"gopkg.in/yaml.v3"
)

// Defaults used when neither the file nor the command line sets a value.
const (
	DefaultResolution    = 100
	DefaultMaxIterations = 1000
	DefaultOutput        = "mandelbrot.png"
)

// Environment variables applied after the file.
const (
	EnvBackend = "MANDEL_BACKEND"
	EnvOutput  = "MANDEL_OUTPUT"
)

// Config holds the settings of one render.
type Config struct {
	Resolution    int   `yaml:"resolution"`
	MaxIterations int32 `yaml:"max_iterations"`
	// Backend names a registered backend. Empty selects the default.
	Backend  string `yaml:"backend"`
	WorkSize int    `yaml:"work_size"`
	// Writes is "mixed", "async" or "sync".
	Writes string `yaml:"writes"`
	// Ownership is "owned" or "borrowed".
	Ownership string       `yaml:"ownership"`
	Profiling bool         `yaml:"profiling"`
	Reuse     bool         `yaml:"reuse"`
	Output    OutputConfig `yaml:"output"`
}

// OutputConfig configures the image sink.
type OutputConfig struct {
	Path string `yaml:"path"`
	// Format is "png", "bmp" or "tiff". Empty infers it from Path.
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Resolution:    DefaultResolution,
		MaxIterations: DefaultMaxIterations,
		Writes:        exchange.MixedWrites.String(),
		Ownership:     device.Owned.String(),
		Output: OutputConfig{
			Path: DefaultOutput,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvOutput); v != "" {
		c.Output.Path = v
	}
}

// Viewport returns the evaluation viewport.
func (c *Config) Viewport() grid.Viewport {
	return grid.Viewport{Resolution: c.Resolution, MaxIterations: c.MaxIterations}
}

// Validate checks every field. Errors are ConfigurationError.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Viewport().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.WorkSize < 0 {
		errs = append(errs, fmt.Errorf("config: work_size must not be negative, got %d", c.WorkSize))
	}
	if _, err := exchange.ParseWritePolicy(c.Writes); err != nil {
		errs = append(errs, err)
	}
	if _, err := exchange.ParseOwnership(c.Ownership); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Format(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return device.Wrap(device.ConfigurationError, "config", errors.Join(errs...))
	}
	return nil
}

// Format returns the output format, inferred from the path when unset.
func (c *Config) Format() (sink.Format, error) {
	if c.Output.Format != "" {
		return sink.ParseFormat(c.Output.Format)
	}
	return sink.FormatFromPath(c.Output.Path)
}

// Sink returns a file sink for the output settings.
func (c *Config) Sink() (*sink.FileSink, error) {
	f, err := c.Format()
	if err != nil {
		return nil, err
	}
	return &sink.FileSink{Path: c.Output.Path, Format: f}, nil
}

// DispatchOptions converts the settings to dispatcher options. Call
// Validate first.
func (c *Config) DispatchOptions() ([]dispatch.Option, error) {
	writes, err := exchange.ParseWritePolicy(c.Writes)
	if err != nil {
		return nil, err
	}
	ownership, err := exchange.ParseOwnership(c.Ownership)
	if err != nil {
		return nil, err
	}
	return []dispatch.Option{
		dispatch.WithWorkSize(c.WorkSize),
		dispatch.WithWritePolicy(writes),
		dispatch.WithOwnership(ownership),
		dispatch.WithProfiling(c.Profiling),
		dispatch.WithSessionReuse(c.Reuse),
	}, nil
}
