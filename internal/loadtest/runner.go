package loadtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/midiverse/pkg/logger"
)

const directoryPermission = 0o750

// ErrInvalidConfig is returned by Run for unusable settings.
var ErrInvalidConfig = errors.New("invalid load test config")

// Validate checks the settings Run depends on.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	case c.Requests < 1:
		return fmt.Errorf("%w: requests must be >= 1", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1", ErrInvalidConfig)
	case c.WorkDir == "":
		return fmt.Errorf("%w: work dir is required", ErrInvalidConfig)
	case c.Engine == "":
		return fmt.Errorf("%w: engine is required", ErrInvalidConfig)
	}
	return nil
}

// Run checks service health, submits the renders and verifies the results.
// Rejections under backpressure are counted, not treated as failures.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting render load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("workers", cfg.Workers),
		logger.String("engine", cfg.Engine),
		logger.Duration("timeout", cfg.Timeout))

	if err := checkServiceHealth(ctx, cfg); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	performances, err := generatePerformances(ctx, cfg, stats)
	if err != nil {
		return stats, fmt.Errorf("performance generation failed: %w", err)
	}

	outputs := submitRenders(ctx, cfg, performances, stats)

	verifyErr := verifyArtifacts(ctx, cfg, outputs, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verifyErr != nil {
		return stats, fmt.Errorf("artifact verification failed: %w", verifyErr)
	}
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d render requests failed", stats.Failed)
	}
	return stats, nil
}

func checkServiceHealth(ctx context.Context, cfg *Config) error {
	resp, err := newHTTPClient(cfg.Timeout).Get(ctx, cfg.BaseURL+"/health")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, rendersPerSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Successful) / float64(stats.Submitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		rendersPerSecond = float64(stats.Successful) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("verified", stats.Verified),
		logger.Any("audioBytes", stats.AudioBytes),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("rendersPerSecond", rendersPerSecond))
}
