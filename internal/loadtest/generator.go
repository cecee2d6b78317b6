package loadtest

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/okian/midiverse/pkg/logger"
)

// Melody generation ranges.
const (
	ticksPerQuarter = 480
	noteTicks       = ticksPerQuarter / 2
	minNotes        = 4
	noteRange       = 5
	lowestKey       = 48
	keyRange        = 36
	minVelocity     = 60
	velocityRange   = 60
)

// randIntn returns a uniform int in [0, n) using crypto/rand.
func randIntn(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generatePerformances writes cfg.Requests random melodies into cfg.WorkDir.
func generatePerformances(ctx context.Context, cfg *Config, stats *Stats) ([]string, error) {
	logger.Get().Info(ctx, "generating performances", logger.Int("count", cfg.Requests), logger.String("dir", cfg.WorkDir))

	if err := os.MkdirAll(cfg.WorkDir, directoryPermission); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	type result struct {
		index int
		path  string
		err   error
	}

	paths := make([]string, cfg.Requests)
	results := make(chan result, cfg.Requests)

	workerCount := minInt(cfg.Workers, cfg.Requests)
	perWorker := cfg.Requests / workerCount

	for w := 0; w < workerCount; w++ {
		start := w * perWorker
		end := start + perWorker
		if w == workerCount-1 {
			end = cfg.Requests
		}
		go func(start, end int) {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					results <- result{index: i, err: err}
					continue
				}
				path := filepath.Join(cfg.WorkDir, fmt.Sprintf("load_%05d.mid", i))
				results <- result{index: i, path: path, err: writeMelody(path)}
			}
		}(start, end)
	}

	for i := 0; i < cfg.Requests; i++ {
		r := <-results
		if r.err != nil {
			return nil, fmt.Errorf("generate performance %d: %w", r.index, r.err)
		}
		paths[r.index] = r.path
	}

	stats.Generated = len(paths)
	logger.Get().Info(ctx, "generated performances", logger.Int("count", len(paths)))
	return paths, nil
}

// writeMelody writes a single-track file of consecutive eighth notes.
func writeMelody(path string) error {
	var tr smf.Track
	notes := minNotes + randIntn(noteRange)
	for n := 0; n < notes; n++ {
		key := uint8(lowestKey + randIntn(keyRange))
		vel := uint8(minVelocity + randIntn(velocityRange))
		tr.Add(0, gomidi.NoteOn(0, key, vel))
		tr.Add(noteTicks, gomidi.NoteOff(0, key))
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("add track: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := s.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
