package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/midiverse/internal/domain/model"
	"github.com/okian/midiverse/internal/domain/pipeline"
	"github.com/okian/midiverse/pkg/logger"
	"github.com/okian/midiverse/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Job is what workers read off the queue.
type Job = model.RenderJob

// Renderer runs one pipeline request.
type Renderer interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Report, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
	Len(ctx context.Context) int
}

// Worker renders jobs until its queue is drained.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	renderer Renderer
	name     string

	shutdown chan struct{}
	done     chan struct{}

	processed *atomic.Int64
	failed    *atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, renderer Renderer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		renderer:  renderer,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		processed: new(atomic.Int64),
		failed:    new(atomic.Int64),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes jobs until the queue is closed and drained, ctx is
// canceled, or Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.queue.Len(ctx) // refreshes the queue size gauge
			w.process(ctx, job)
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process renders one job and delivers exactly one result.
func (w *InMemoryWorker) process(ctx context.Context, job Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	metrics.RecordQueueWait(time.Since(job.EnqueuedAt))

	if abandoned(job) {
		w.logger.Warn(ctx, "skipping abandoned job", logger.String("job_id", job.ID))
		w.deliver(job, model.RenderResult{JobID: job.ID, Err: ErrAbandoned})
		return
	}

	metrics.WorkerBusy(1)
	defer metrics.WorkerBusy(-1)

	start := time.Now()
	rep, err := w.renderer.Run(ctx, pipeline.Request{
		PerformancePath: job.PerformancePath,
		EngineID:        job.EngineID,
		Options:         job.Options,
	})
	elapsed := time.Since(start)
	metrics.RecordWorkerProcessingLatency(elapsed)
	for stage, d := range rep.Stages {
		metrics.RecordStageDuration(string(stage), d)
	}
	metrics.RecordParseWarnings(rep.Warnings)
	w.processed.Add(1)

	engineName := rep.Engine
	if engineName == "" {
		engineName = "none"
	}

	if err != nil {
		w.failed.Add(1)
		stage, _ := pipeline.StageOf(err)
		metrics.RecordRender(engineName, "error")
		metrics.RecordPipelineError(string(stage))
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "render failed",
			logger.String("job_id", job.ID),
			logger.String("stage", string(stage)),
			logger.Error(err),
		)
		w.deliver(job, model.RenderResult{JobID: job.ID, Engine: rep.Engine, Err: err})
		return
	}

	metrics.RecordRender(engineName, "success")
	metrics.RecordRenderedFrames(rep.Frames)
	metrics.RecordEncodedBytes(rep.Artifact.Size)
	w.logger.Debug(ctx, "job finished",
		logger.String("job_id", job.ID),
		logger.String("artifact", rep.Artifact.Path),
		logger.Duration("elapsed", elapsed),
	)
	w.deliver(job, model.RenderResult{JobID: job.ID, Artifact: rep.Artifact, Engine: rep.Engine})
}

func (w *InMemoryWorker) deliver(job Job, res model.RenderResult) { //nolint:gocritic // hugeParam
	if job.Result == nil {
		return
	}
	select {
	case job.Result <- res:
	default:
		w.logger.Warn(context.Background(), "result channel full, dropping result", logger.String("job_id", job.ID))
	}
}

func abandoned(job Job) bool { //nolint:gocritic // hugeParam
	if job.Abandoned == nil {
		return false
	}
	select {
	case <-job.Abandoned:
		return true
	default:
		return false
	}
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	processed atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// NewPool creates workerCount workers. A non-positive count means one per CPU.
func NewPool(workerCount int, queue Queue, renderer Renderer, log logger.Logger) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	if log == nil {
		log = logger.Nop()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  log.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(queue, renderer,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(log),
		)
		w.processed = &p.processed
		w.failed = &p.failed
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of jobs run through the pipeline.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed returns the number of jobs whose pipeline run failed.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	return nil
}
