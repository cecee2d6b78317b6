package service

import (
	"time"

	"github.com/okian/midiverse/internal/domain/engine"
	"github.com/okian/midiverse/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of render workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued render jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithOutputDir sets the directory artifacts are written to and served from.
func WithOutputDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.outputDir = dir
		}
	}
}

// WithRenderTimeout bounds how long Render waits for a job.
func WithRenderTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.renderTimeout = d
		}
	}
}

// WithEngineMode selects how engines are chosen per job.
func WithEngineMode(mode engine.Mode) Option {
	return func(s *Service) {
		if mode != "" {
			s.engineMode = mode
		}
	}
}

// WithHost sets the plugin host. Nil disables plugin rendering.
func WithHost(h engine.Host) Option {
	return func(s *Service) {
		s.host = h
	}
}

// WithBlockSize sets the plugin processing block size.
func WithBlockSize(frames int) Option {
	return func(s *Service) {
		if frames > 0 {
			s.blockSize = frames
		}
	}
}

// WithReleaseTail sets the silence rendered after the last event.
func WithReleaseTail(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.releaseTail = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
