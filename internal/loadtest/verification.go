package loadtest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/okian/midiverse/internal/domain/wav"
	"github.com/okian/midiverse/pkg/logger"
)

// verifyArtifacts downloads every output file and checks its header against
// the requested format.
func verifyArtifacts(ctx context.Context, cfg *Config, outputs []string, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "verifying artifacts", logger.Int("count", len(outputs)))

	client := newHTTPClient(cfg.Timeout)
	var failures int
	for _, output := range outputs {
		n, err := verifyArtifact(ctx, client, cfg, filepath.Base(output))
		if err != nil {
			failures++
			log.Warn(ctx, "artifact verification failed", logger.String("artifact", output), logger.Error(err))
			continue
		}
		stats.Verified++
		stats.AudioBytes += int64(n)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d artifacts failed verification", failures, len(outputs))
	}
	log.Info(ctx, "artifact verification completed", logger.Int("verified", stats.Verified))
	return nil
}

func verifyArtifact(ctx context.Context, client *HTTPClient, cfg *Config, name string) (int, error) {
	resp, err := client.Get(ctx, cfg.BaseURL+"/download/"+url.PathEscape(name))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}
	h, err := wav.DecodeHeader(data)
	if err != nil {
		return 0, err
	}

	switch {
	case cfg.SampleRate > 0 && h.SampleRate != uint32(cfg.SampleRate):
		return 0, fmt.Errorf("sample rate %d, want %d", h.SampleRate, uint32(cfg.SampleRate))
	case cfg.Channels > 0 && int(h.Channels) != cfg.Channels:
		return 0, fmt.Errorf("channels %d, want %d", h.Channels, cfg.Channels)
	case cfg.BitDepth > 0 && int(h.BitsPerSample) != cfg.BitDepth:
		return 0, fmt.Errorf("bit depth %d, want %d", h.BitsPerSample, cfg.BitDepth)
	case int(h.DataSize) != len(data)-wav.HeaderSize:
		return 0, fmt.Errorf("data size %d, body carries %d", h.DataSize, len(data)-wav.HeaderSize)
	}
	return len(data), nil
}
