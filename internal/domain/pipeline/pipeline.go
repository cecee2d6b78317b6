// Package pipeline sequences parse, render and encode for a single
// performance file and persists the resulting container.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/midiverse/internal/domain/engine"
	"github.com/okian/midiverse/internal/domain/midifile"
	"github.com/okian/midiverse/internal/domain/model"
	"github.com/okian/midiverse/internal/domain/wav"
	"github.com/okian/midiverse/pkg/logger"
)

// EngineFactory returns a fresh engine for identifier on every call.
type EngineFactory interface {
	New(identifier string) engine.Engine
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// Pipeline holds no per-render state and may be shared between goroutines
// as long as its EngineFactory and Sink are.
type Pipeline struct {
	engines EngineFactory
	sink    Sink
	log     logger.Logger
}

// New returns a Pipeline writing through sink.
func New(engines EngineFactory, sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{engines: engines, sink: sink, log: logger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Request is one render.
type Request struct {
	PerformancePath string
	EngineID        string
	Options         model.RenderOptions
	// OutputName is handed to the Sink. Empty means OutputName(...).
	OutputName string
}

// Report describes a finished render.
type Report struct {
	Artifact model.RenderedArtifact
	Engine   string
	Frames   int
	Warnings int
	Stages   map[Stage]time.Duration
}

// RenderOne renders performancePath through engineID and returns the
// artifact path, named by OutputName.
func (p *Pipeline) RenderOne(ctx context.Context, performancePath, engineID string, opts model.RenderOptions) (string, error) {
	rep, err := p.Run(ctx, Request{PerformancePath: performancePath, EngineID: engineID, Options: opts})
	if err != nil {
		return "", err
	}
	return rep.Artifact.Path, nil
}

// Run executes every stage in order and stops at the first failure, which
// is returned as a *PipelineError. The report is filled as far as the run got.
func (p *Pipeline) Run(ctx context.Context, req Request) (Report, error) {
	rep := Report{Stages: make(map[Stage]time.Duration, 4)}
	name := req.OutputName
	if name == "" {
		name = OutputName(req.PerformancePath, req.EngineID, req.Options.SampleRate)
	}

	start := time.Now()
	doc, err := midifile.ReadFile(req.PerformancePath)
	rep.Stages[StageParse] = time.Since(start)
	if err != nil {
		return rep, fail(StageParse, err)
	}
	rep.Warnings = len(doc.Warnings)
	midifile.LogSummary(ctx, p.log, req.PerformancePath, doc)

	eng := p.engines.New(req.EngineID)
	rep.Engine = eng.Name()
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			p.log.Warn(ctx, "close engine", logger.Error(cerr))
		}
	}()

	start = time.Now()
	err = eng.Load(req.EngineID)
	rep.Stages[StageLoad] = time.Since(start)
	if err != nil {
		return rep, fail(StageLoad, err)
	}

	start = time.Now()
	buf, err := eng.Render(doc, req.Options.SampleRate, req.Options.Channels)
	rep.Stages[StageRender] = time.Since(start)
	if err != nil {
		return rep, fail(StageRender, err)
	}
	rep.Frames = buf.Frames()

	start = time.Now()
	data, err := wav.Encode(buf.Samples, req.Options.SampleRate, buf.Channels, req.Options.BitDepth)
	if err != nil {
		rep.Stages[StageEncode] = time.Since(start)
		return rep, fail(StageEncode, err)
	}
	path, err := p.sink.Persist(name, data)
	rep.Stages[StageEncode] = time.Since(start)
	if err != nil {
		if !errors.Is(err, wav.ErrWrite) {
			err = fmt.Errorf("%w: %w: %w", wav.ErrEncode, wav.ErrWrite, err)
		}
		return rep, fail(StageEncode, err)
	}

	rep.Artifact = model.RenderedArtifact{Path: path, Size: len(data)}
	p.log.Info(ctx, "render complete",
		logger.String("artifact", path),
		logger.String("engine", rep.Engine),
		logger.Int("frames", rep.Frames),
		logger.Int("bytes", len(data)),
	)
	return rep, nil
}
