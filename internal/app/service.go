// Package service wires the render queue, worker pool, pipeline and artifact
// store behind the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/midiverse/internal/adapters/artifact"
	"github.com/okian/midiverse/internal/adapters/mq/queue"
	"github.com/okian/midiverse/internal/adapters/mq/worker"
	"github.com/okian/midiverse/internal/domain/engine"
	"github.com/okian/midiverse/internal/domain/model"
	"github.com/okian/midiverse/internal/domain/pipeline"
	"github.com/okian/midiverse/pkg/logger"
	"github.com/okian/midiverse/pkg/metrics"
)

const systemMetricsInterval = 10 * time.Second

// Service implements the API dependencies for the render service.
type Service struct {
	mu sync.RWMutex

	store    *artifact.Store
	jobQueue *queue.InMemoryQueue
	pool     *worker.Pool

	workerCount   int
	queueSize     int
	outputDir     string
	renderTimeout time.Duration
	engineMode    engine.Mode
	host          engine.Host
	blockSize     int
	releaseTail   time.Duration

	started bool
	stopCh  chan struct{}

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     64,
		outputDir:     "output",
		renderTimeout: 2 * time.Minute,
		engineMode:    engine.ModeAuto,
		host:          engine.BuiltinHost{},
		blockSize:     engine.DefaultBlockSize,
		releaseTail:   engine.DefaultReleaseTail,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the output directory and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	store, err := artifact.NewStore(s.outputDir, artifact.WithLogger(s.logger.Named("artifact")))
	if err != nil {
		return fmt.Errorf("start render service: %w", err)
	}
	selector := engine.NewSelector(s.engineMode, s.host,
		engine.WithBlockSize(s.blockSize),
		engine.WithReleaseTail(s.releaseTail),
		engine.WithLogger(s.logger.Named("engine")),
	)
	pipe := pipeline.New(selector, store, pipeline.WithLogger(s.logger.Named("pipeline")))

	s.store = store
	s.jobQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.jobQueue, pipe, s.logger)
	s.pool.Start(context.WithoutCancel(ctx))

	s.stopCh = make(chan struct{})
	go s.updateSystemMetrics(s.stopCh)

	s.started = true
	s.logger.Info(ctx, "render service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.String("output_dir", store.Dir()),
		logger.String("engine_mode", string(s.engineMode)),
	)
	return nil
}

// Stop closes the queue and waits for queued jobs to finish.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping render service")

	close(s.stopCh)
	err := s.pool.Shutdown(ctx)
	s.started = false
	if err != nil {
		return fmt.Errorf("stop render service: %w", err)
	}
	s.logger.Info(ctx, "render service stopped")
	return nil
}

// Render queues a job and waits for its result. The wait is bounded by the
// render timeout and by ctx; a job still queued when the wait ends is skipped.
func (s *Service) Render(ctx context.Context, performancePath, engineID string, opts model.RenderOptions) (model.RenderResult, error) {
	s.mu.RLock()
	started, q := s.started, s.jobQueue
	s.mu.RUnlock()
	if !started {
		return model.RenderResult{}, fmt.Errorf("%w: service not started", queue.ErrClosed)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()

	results := make(chan model.RenderResult, 1)
	job := model.RenderJob{
		ID:              uuid.NewString(),
		PerformancePath: performancePath,
		EngineID:        engineID,
		Options:         opts,
		EnqueuedAt:      time.Now(),
		Abandoned:       waitCtx.Done(),
		Result:          results,
	}
	if err := q.Enqueue(waitCtx, job); err != nil {
		s.logger.Warn(ctx, "render job rejected", logger.String("job_id", job.ID), logger.Error(err))
		return model.RenderResult{JobID: job.ID}, fmt.Errorf("enqueue render job: %w", err)
	}
	s.logger.Debug(ctx, "render job queued",
		logger.String("job_id", job.ID),
		logger.String("performance", performancePath),
		logger.String("engine", engineID),
	)

	select {
	case res := <-results:
		return res, res.Err
	case <-waitCtx.Done():
		return model.RenderResult{JobID: job.ID}, fmt.Errorf("wait for render job %s: %w", job.ID, waitCtx.Err())
	}
}

// HasEngine reports whether the configured host can open engineID.
func (s *Service) HasEngine(engineID string) bool {
	return s.host != nil && s.host.CanOpen(engineID)
}

// OpenArtifact opens a rendered file by bare name.
func (s *Service) OpenArtifact(name string) (*os.File, fs.FileInfo, error) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return nil, nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, name)
	}
	return store.Open(name)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"outputDir":   s.outputDir,
		"engineMode":  string(s.engineMode),
	}
	if s.started {
		stats["queueLength"] = s.jobQueue.Len(context.Background())
		stats["processed"] = s.pool.Processed()
		stats["failed"] = s.pool.Failed()
		if names, err := s.store.List(); err == nil {
			stats["artifacts"] = len(names)
		}
	}
	return stats
}

func (s *Service) updateSystemMetrics(stop <-chan struct{}) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	var ms runtime.MemStats
	for {
		runtime.ReadMemStats(&ms)
		metrics.UpdateSystemMemoryUsage(ms.HeapAlloc)
		metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}
