// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loaders layer file and environment values over those defaults.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/midiverse/internal/domain/engine"
	"github.com/okian/midiverse/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// OutputDir is where rendered files are written and served from.
	OutputDir string `koanf:"output_dir"`

	// WorkerCount sets the number of render workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the render job queue.
	QueueSize int `koanf:"queue_size"`

	// RenderTimeoutMS bounds how long a request waits for its job.
	RenderTimeoutMS int `koanf:"render_timeout_ms"`

	// Defaults for optional render request fields.
	DefaultSampleRate float64 `koanf:"default_sample_rate"`
	DefaultChannels   int     `koanf:"default_channels"`
	DefaultBitDepth   int     `koanf:"default_bit_depth"`

	// EngineMode is auto, plugin or fallback.
	EngineMode string `koanf:"engine_mode"`

	// BlockSize is the plugin processing block size in frames.
	BlockSize int `koanf:"block_size"`

	// ReleaseTailMS is the silence rendered after the last event.
	ReleaseTailMS int `koanf:"release_tail_ms"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8080",
		OutputDir:         "output",
		WorkerCount:       runtime.NumCPU(),
		QueueSize:         64,
		RenderTimeoutMS:   120_000,
		DefaultSampleRate: model.DefaultSampleRate,
		DefaultChannels:   model.DefaultChannels,
		DefaultBitDepth:   model.DefaultBitDepth,
		EngineMode:        string(engine.ModeAuto),
		BlockSize:         engine.DefaultBlockSize,
		ReleaseTailMS:     int(engine.DefaultReleaseTail / time.Millisecond),
	}
}

// Validate checks the values a service cannot start without.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.OutputDir == "":
		return fmt.Errorf("%w: output_dir must not be empty", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.RenderTimeoutMS < 1:
		return fmt.Errorf("%w: render_timeout_ms must be positive, got %d", ErrInvalidConfig, c.RenderTimeoutMS)
	case c.BlockSize < 1:
		return fmt.Errorf("%w: block_size must be positive, got %d", ErrInvalidConfig, c.BlockSize)
	case c.ReleaseTailMS < 0:
		return fmt.Errorf("%w: release_tail_ms must not be negative, got %d", ErrInvalidConfig, c.ReleaseTailMS)
	case !model.IsSupportedBitDepth(c.DefaultBitDepth):
		return fmt.Errorf("%w: default_bit_depth must be 16, 24 or 32, got %d", ErrInvalidConfig, c.DefaultBitDepth)
	}
	if err := c.RenderDefaults().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := engine.ParseMode(c.EngineMode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// RenderDefaults returns the configured default render options.
func (c *Config) RenderDefaults() model.RenderOptions {
	return model.RenderOptions{
		SampleRate: c.DefaultSampleRate,
		Channels:   c.DefaultChannels,
		BitDepth:   c.DefaultBitDepth,
	}
}

// RenderTimeout returns RenderTimeoutMS as a duration.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutMS) * time.Millisecond
}

// ReleaseTail returns ReleaseTailMS as a duration.
func (c *Config) ReleaseTail() time.Duration {
	return time.Duration(c.ReleaseTailMS) * time.Millisecond
}
