package midifile

import (
	"context"

	"github.com/okian/midiverse/internal/domain/model"
	"github.com/okian/midiverse/pkg/logger"
)

// LogSummary emits the header fields, per-track lengths and warnings of doc.
func LogSummary(ctx context.Context, log logger.Logger, source string, doc *model.PerformanceDocument) {
	log.Info(ctx, "loaded performance file",
		logger.String("file", source),
		logger.Int("format", int(doc.Format)),
		logger.Uint16("track_count", doc.TrackCount),
		logger.Uint16("ticks_per_quarter", doc.TicksPerBeat),
		logger.Int("tracks_found", len(doc.Tracks)),
	)
	for i, tr := range doc.Tracks {
		log.Debug(ctx, "found track",
			logger.Int("index", i),
			logger.Int("offset", tr.Offset),
			logger.Int("length", int(tr.Length)),
		)
	}
	for _, w := range doc.Warnings {
		log.Warn(ctx, "performance file warning",
			logger.String("kind", string(w.Kind)),
			logger.Int("offset", w.Offset),
			logger.String("detail", w.Message),
		)
	}
}
