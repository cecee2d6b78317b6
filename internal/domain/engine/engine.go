// Package engine defines the sound-engine contract used by the render
// pipeline and its two implementations: a plugin-hosting engine that drives
// a Plugin block by block, and a procedural fallback synthesizer.
package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/midiverse/internal/domain/model"
	"github.com/okian/midiverse/pkg/logger"
)

// Sentinel kinds for engine errors.
var (
	ErrLoad            = errors.New("load engine")
	ErrRender          = errors.New("render")
	ErrNotLoaded       = errors.New("engine not loaded")
	ErrAlreadyRendered = errors.New("engine already rendered")
	ErrUnknownMode     = errors.New("unknown engine mode")
)

// Defaults for the block-processing loop.
const (
	DefaultBlockSize   = 512
	DefaultReleaseTail = 2 * time.Second
)

// Engine turns a performance document into interleaved float samples.
// An Engine is used for exactly one render: Load, then Render once, then
// Close.
type Engine interface {
	// Name identifies the variant, e.g. "plugin" or "fallback".
	Name() string
	// Load resolves identifier to a backend. Errors wrap ErrLoad.
	Load(identifier string) error
	// Render produces the full sample buffer. Errors wrap ErrRender.
	Render(doc *model.PerformanceDocument, sampleRate float64, channels int) (model.SampleBuffer, error)
	// Close releases a loaded backend that Render did not release. It is
	// safe to call more than once and without a prior Load.
	Close() error
}

// Mode selects which Engine a Selector constructs.
type Mode string

// Engine modes.
const (
	ModeAuto     Mode = "auto"
	ModePlugin   Mode = "plugin"
	ModeFallback Mode = "fallback"
)

// ParseMode validates s as a Mode. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModePlugin, ModeFallback:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Option configures engines built by a Selector.
type Option func(*settings)

type settings struct {
	blockSize   int
	releaseTail time.Duration
	logger      logger.Logger
}

// WithBlockSize sets the plugin processing block size in frames.
func WithBlockSize(frames int) Option {
	return func(s *settings) {
		if frames > 0 {
			s.blockSize = frames
		}
	}
}

// WithReleaseTail sets the silence rendered after the last event.
func WithReleaseTail(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.releaseTail = d
		}
	}
}

// WithLogger sets the logger used by engines.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		blockSize:   DefaultBlockSize,
		releaseTail: DefaultReleaseTail,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Selector constructs a fresh Engine per render.
type Selector struct {
	mode     Mode
	host     Host
	settings settings
}

// NewSelector returns a Selector. host may be nil, in which case plugin mode
// always fails to load and auto mode always falls back.
func NewSelector(mode Mode, host Host, opts ...Option) *Selector {
	if mode == "" {
		mode = ModeAuto
	}
	return &Selector{mode: mode, host: host, settings: newSettings(opts)}
}

// New returns the engine variant for identifier.
func (s *Selector) New(identifier string) Engine {
	switch s.mode {
	case ModeFallback:
		return newFallback(s.settings)
	case ModePlugin:
		return newHostPlugin(s.host, s.settings)
	default:
		if s.host != nil && s.host.CanOpen(identifier) {
			return newHostPlugin(s.host, s.settings)
		}
		return newFallback(s.settings)
	}
}

// Mode returns the configured selection mode.
func (s *Selector) Mode() Mode {
	return s.mode
}
