package engine

import (
	"context"
	"fmt"

	"github.com/okian/midiverse/internal/domain/model"
	"github.com/okian/midiverse/pkg/logger"
)

// hostPluginEngine drives a Plugin obtained from a Host.
type hostPluginEngine struct {
	host     Host
	settings settings

	identifier string
	plugin     Plugin
	rendered   bool
	released   bool
}

func newHostPlugin(host Host, s settings) *hostPluginEngine {
	return &hostPluginEngine{host: host, settings: s}
}

// NewHostPlugin returns a plugin-hosting Engine.
func NewHostPlugin(host Host, opts ...Option) Engine {
	return newHostPlugin(host, newSettings(opts))
}

func (e *hostPluginEngine) Name() string { return string(ModePlugin) }

func (e *hostPluginEngine) Load(identifier string) error {
	if e.host == nil {
		return fmt.Errorf("%w: no plugin host available for %q", ErrLoad, identifier)
	}
	p, err := e.host.Open(identifier)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrLoad, identifier, err)
	}
	e.identifier = identifier
	e.plugin = p
	e.settings.logger.Info(context.Background(), "loaded plugin",
		logger.String("identifier", identifier),
		logger.String("plugin", p.Name()),
	)
	return nil
}

// Close releases a plugin that was loaded but never rendered, for example
// when the render was rejected before it started.
func (e *hostPluginEngine) Close() error {
	e.release()
	return nil
}

func (e *hostPluginEngine) release() {
	if e.plugin == nil || e.released {
		return
	}
	e.released = true
	e.plugin.Release()
}

func (e *hostPluginEngine) Render(doc *model.PerformanceDocument, sampleRate float64, channels int) (model.SampleBuffer, error) {
	switch {
	case e.rendered:
		return model.SampleBuffer{}, fmt.Errorf("%w: %w", ErrRender, ErrAlreadyRendered)
	case e.plugin == nil || e.released:
		return model.SampleBuffer{}, fmt.Errorf("%w: %w", ErrRender, ErrNotLoaded)
	case sampleRate < 1 || channels < 1:
		return model.SampleBuffer{}, fmt.Errorf("%w: invalid format rate=%v channels=%d", ErrRender, sampleRate, channels)
	}
	e.rendered = true
	defer e.release()

	blockSize := e.settings.blockSize
	if err := e.plugin.Prepare(sampleRate, blockSize, channels); err != nil {
		return model.SampleBuffer{}, fmt.Errorf("%w: prepare %s: %w", ErrRender, e.plugin.Name(), err)
	}

	tl, err := buildTimeline(doc, sampleRate, e.settings.releaseTail.Seconds())
	if err != nil {
		return model.SampleBuffer{}, fmt.Errorf("%w: %w", ErrRender, err)
	}

	out := make([]float32, tl.totalFrames*channels)
	scratch := make([][]float32, channels)
	for c := range scratch {
		scratch[c] = make([]float32, blockSize)
	}
	blockEvents := make([]Event, 0, 64)
	next := 0

	for pos := 0; pos < tl.totalFrames; pos += blockSize {
		n := min(blockSize, tl.totalFrames-pos)

		block := make([][]float32, channels)
		for c := range scratch {
			clear(scratch[c])
			block[c] = scratch[c][:n]
		}

		blockEvents, next = tl.take(next, pos, pos+n, blockEvents)
		if err := e.plugin.Process(block, blockEvents); err != nil {
			return model.SampleBuffer{}, fmt.Errorf("%w: block at frame %d: %w", ErrRender, pos, err)
		}

		for c := 0; c < channels; c++ {
			src := block[c]
			for i := 0; i < n; i++ {
				out[(pos+i)*channels+c] = src[i]
			}
		}
	}

	e.settings.logger.Info(context.Background(), "plugin render complete",
		logger.String("plugin", e.plugin.Name()),
		logger.Int("frames", tl.totalFrames),
		logger.Int("events", len(tl.events)),
		logger.Float64("seconds", float64(tl.totalFrames)/sampleRate),
	)
	return model.SampleBuffer{Samples: out, Channels: channels}, nil
}
