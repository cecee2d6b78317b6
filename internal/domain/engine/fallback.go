package engine

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/okian/midiverse/internal/domain/model"
	"github.com/okian/midiverse/pkg/logger"
)

// Fallback melody parameters.
const (
	fallbackSeconds   = 5.0
	fallbackNoteSlot  = 0.5
	fallbackAttack    = 0.05
	fallbackRelease   = 0.1
	fallbackAmplitude = 0.5
)

// C major scale from middle C to the C above.
var fallbackScale = [8]float64{261.63, 293.66, 329.63, 349.23, 392.00, 440.00, 493.88, 523.25}

// fallbackEngine synthesizes a fixed scale and ignores the document.
type fallbackEngine struct {
	settings   settings
	identifier string
	loaded     bool
	rendered   bool
}

func newFallback(s settings) *fallbackEngine {
	return &fallbackEngine{settings: s}
}

// NewFallback returns the procedural fallback Engine.
func NewFallback(opts ...Option) Engine {
	return newFallback(newSettings(opts))
}

func (e *fallbackEngine) Name() string { return string(ModeFallback) }

// Load accepts any non-empty identifier.
func (e *fallbackEngine) Load(identifier string) error {
	if strings.TrimSpace(identifier) == "" {
		return fmt.Errorf("%w: empty engine identifier", ErrLoad)
	}
	e.identifier = identifier
	e.loaded = true
	e.settings.logger.Info(context.Background(), "using fallback synthesizer",
		logger.String("identifier", identifier),
	)
	return nil
}

func (e *fallbackEngine) Close() error { return nil }

// Render ignores doc and always produces five seconds of the scale.
func (e *fallbackEngine) Render(_ *model.PerformanceDocument, sampleRate float64, channels int) (model.SampleBuffer, error) {
	switch {
	case !e.loaded:
		return model.SampleBuffer{}, fmt.Errorf("%w: %w", ErrRender, ErrNotLoaded)
	case e.rendered:
		return model.SampleBuffer{}, fmt.Errorf("%w: %w", ErrRender, ErrAlreadyRendered)
	case sampleRate <= 0 || channels < 1:
		return model.SampleBuffer{}, fmt.Errorf("%w: invalid format rate=%v channels=%d", ErrRender, sampleRate, channels)
	}
	e.rendered = true

	frames := int(sampleRate * fallbackSeconds)
	out := make([]float32, frames*channels)
	for f := 0; f < frames; f++ {
		s := float32(fallbackSample(float64(f) / sampleRate))
		base := f * channels
		for c := 0; c < channels; c++ {
			out[base+c] = s
		}
	}
	return model.SampleBuffer{Samples: out, Channels: channels}, nil
}

// fallbackSample returns the melody value at t seconds.
func fallbackSample(t float64) float64 {
	note := int(t/fallbackNoteSlot) % len(fallbackScale)
	inSlot := math.Mod(t, fallbackNoteSlot)

	env := 1.0
	switch {
	case inSlot < fallbackAttack:
		env = inSlot / fallbackAttack
	case inSlot > fallbackNoteSlot-fallbackRelease:
		env = (fallbackNoteSlot - inSlot) / fallbackRelease
	}
	return fallbackAmplitude * env * math.Sin(2*math.Pi*fallbackScale[note]*t)
}
