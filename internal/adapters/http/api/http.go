// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/midiverse/internal/adapters/artifact"
	"github.com/okian/midiverse/internal/adapters/mq/queue"
	"github.com/okian/midiverse/internal/domain/model"
	"github.com/okian/midiverse/internal/domain/pipeline"
	"github.com/okian/midiverse/pkg/metrics"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Render queues a job and waits for its result.
	Render(ctx context.Context, performancePath, engineID string, opts model.RenderOptions) (model.RenderResult, error)

	// HasEngine reports whether engineID resolves without a file on disk.
	HasEngine(engineID string) bool

	// OpenArtifact opens a previously rendered file by bare name.
	OpenArtifact(name string) (*os.File, fs.FileInfo, error)
}

// Server wires HTTP routes for the render API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	renderHandler   *RenderHandler
	downloadHandler *DownloadHandler
}

// NewServer creates a new API server with all handlers. defaults fill in
// optional render request fields.
func NewServer(deps Dependencies, statsProvider StatsProvider, defaults model.RenderOptions) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		renderHandler:   NewRenderHandler(deps, defaults),
		downloadHandler: NewDownloadHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/render", MetricsMiddleware(s.renderHandler.HandleRender, "render"))
	mux.HandleFunc("/download/", MetricsMiddleware(s.downloadHandler.HandleDownload, "download"))
}

type errorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Status: "error", Code: code, Message: msg}
	if stage, ok := pipeline.StageOf(err); ok {
		resp.Stage = string(stage)
	}
	writeJSON(w, status, resp)
}

// classify maps a service error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, artifact.ErrInvalidName):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound), errors.Is(err, artifact.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, queue.ErrClosed), errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	if stage, ok := pipeline.StageOf(err); ok {
		if stage == pipeline.StageParse {
			return http.StatusBadRequest, "parse_error"
		}
		return http.StatusInternalServerError, string(stage) + "_error"
	}
	return http.StatusInternalServerError, "internal_error"
}
