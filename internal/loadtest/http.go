package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/midiverse/pkg/logger"
)

// Submission outcomes.
const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// submitRenders posts one render request per performance and returns the
// output files of the successful ones.
func submitRenders(ctx context.Context, cfg *Config, performances []string, stats *Stats) []string {
	log := logger.Get()
	log.Info(ctx, "submitting render requests", logger.Int("requests", len(performances)), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/render"

	var (
		submitted  int64
		successful int64
		rejected   int64
		failed     int64
		lastReport atomic.Int64

		mu      sync.Mutex
		outputs []string
	)

	jobs := make(chan string, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for perf := range jobs {
				if ctx.Err() != nil {
					return
				}
				outcome, resp := submitSingleRender(ctx, client, url, cfg, perf)
				atomic.AddInt64(&submitted, 1)
				switch outcome {
				case outcomeSuccess:
					atomic.AddInt64(&successful, 1)
					mu.Lock()
					outputs = append(outputs, resp.OutputFile)
					mu.Unlock()
				case outcomeRejected:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						log.Warn(ctx, "render request failed",
							logger.String("performance", perf),
							logger.String("code", resp.Code),
							logger.String("message", resp.Message))
					}
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int("submitted", int(atomic.LoadInt64(&submitted))),
						logger.Int("total", len(performances)),
						logger.Int("successful", int(atomic.LoadInt64(&successful))),
						logger.Int("rejected", int(atomic.LoadInt64(&rejected))),
						logger.Int("failed", int(atomic.LoadInt64(&failed))))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, perf := range performances {
			select {
			case <-ctx.Done():
				return
			case jobs <- perf:
			}
		}
	}()

	wg.Wait()

	stats.Submitted = int(atomic.LoadInt64(&submitted))
	stats.Successful = int(atomic.LoadInt64(&successful))
	stats.Rejected = int(atomic.LoadInt64(&rejected))
	stats.Failed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "render submission completed",
		logger.Int("successful", stats.Successful),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed))
	return outputs
}

func submitSingleRender(ctx context.Context, client *HTTPClient, url string, cfg *Config, perf string) (string, renderResponse) {
	var out renderResponse
	resp, err := client.Post(ctx, url, renderRequest{
		MidiFile:    perf,
		VSTPath:     cfg.Engine,
		SampleRate:  cfg.SampleRate,
		NumChannels: cfg.Channels,
		BitDepth:    cfg.BitDepth,
	})
	if err != nil {
		out.Message = err.Error()
		return outcomeFailed, out
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		out.Message = err.Error()
		return outcomeFailed, out
	}
	_ = json.Unmarshal(body, &out)

	switch resp.StatusCode {
	case http.StatusOK:
		if out.Status == "success" && out.OutputFile != "" {
			return outcomeSuccess, out
		}
		return outcomeFailed, out
	case http.StatusTooManyRequests:
		return outcomeRejected, out
	default:
		return outcomeFailed, out
	}
}
