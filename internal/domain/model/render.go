package model

import (
	"errors"
	"fmt"
	"math"
)

// Supported output bit depths.
var SupportedBitDepths = []int{16, 24, 32}

// Render defaults used when a request leaves a field unset.
const (
	DefaultSampleRate = 44100.0
	DefaultChannels   = 2
	DefaultBitDepth   = 16
)

// ErrInvalidOptions is returned by RenderOptions.Validate.
var ErrInvalidOptions = errors.New("invalid render options")

// RenderOptions describes the requested output format.
type RenderOptions struct {
	SampleRate float64
	Channels   int
	BitDepth   int
}

// DefaultRenderOptions returns 44.1kHz stereo 16-bit.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		BitDepth:   DefaultBitDepth,
	}
}

// Validate checks the option ranges. Bit depth is validated again by the
// encoder, which owns that error kind.
func (o RenderOptions) Validate() error {
	switch {
	case o.SampleRate < 1 || o.SampleRate > math.MaxUint32:
		return fmt.Errorf("%w: sample rate must be between 1 and %d Hz, got %v", ErrInvalidOptions, uint32(math.MaxUint32), o.SampleRate)
	case o.Channels < 1:
		return fmt.Errorf("%w: channels must be >= 1, got %d", ErrInvalidOptions, o.Channels)
	}
	return nil
}

// IsSupportedBitDepth reports whether depth is one of SupportedBitDepths.
func IsSupportedBitDepth(depth int) bool {
	for _, d := range SupportedBitDepths {
		if d == depth {
			return true
		}
	}
	return false
}

// SampleBuffer holds interleaved float samples, nominally in [-1, 1].
type SampleBuffer struct {
	Samples  []float32
	Channels int
}

// Frames returns the number of frames in the buffer.
func (b SampleBuffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// RenderedArtifact records where an encoded container was persisted.
type RenderedArtifact struct {
	Path string
	Size int
}
