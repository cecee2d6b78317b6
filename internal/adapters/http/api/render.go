package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/okian/midiverse/internal/domain/model"
)

// renderRequest mirrors the OpenAPI schema for POST /render.
type renderRequest struct {
	MidiFile    string   `json:"midiFile"`
	VSTPath     string   `json:"vstPath"`
	SampleRate  *float64 `json:"sampleRate,omitempty"`
	NumChannels *int     `json:"numChannels,omitempty"`
	BitDepth    *int     `json:"bitDepth,omitempty"`
}

func (r renderRequest) options(defaults model.RenderOptions) model.RenderOptions {
	opts := defaults
	if r.SampleRate != nil {
		opts.SampleRate = *r.SampleRate
	}
	if r.NumChannels != nil {
		opts.Channels = *r.NumChannels
	}
	if r.BitDepth != nil {
		opts.BitDepth = *r.BitDepth
	}
	return opts
}

func (r renderRequest) validate() error {
	if strings.TrimSpace(r.MidiFile) == "" || strings.TrimSpace(r.VSTPath) == "" {
		return errors.New("missing required parameters: midiFile and vstPath")
	}
	return nil
}

type renderResponse struct {
	Status     string `json:"status"`
	OutputFile string `json:"outputFile"`
	JobID      string `json:"jobId"`
	Engine     string `json:"engine"`
}

// RenderHandler handles render requests.
type RenderHandler struct {
	deps     Dependencies
	defaults model.RenderOptions
}

// NewRenderHandler creates a new render handler.
func NewRenderHandler(deps Dependencies, defaults model.RenderOptions) *RenderHandler {
	return &RenderHandler{deps: deps, defaults: defaults}
}

// HandleRender handles POST /render requests.
func (h *RenderHandler) HandleRender(w http.ResponseWriter, r *http.Request) {
	const op = "api.render"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("invalid JSON data: %w", err)))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	opts := req.options(h.defaults)
	if err := opts.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if !model.IsSupportedBitDepth(opts.BitDepth) {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, fmt.Errorf("unsupported bitDepth %d", opts.BitDepth)))
		return
	}

	if _, err := os.Stat(req.MidiFile); err != nil {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, fmt.Errorf("MIDI file not found: %s", req.MidiFile)))
		return
	}
	if !h.deps.HasEngine(req.VSTPath) {
		if _, err := os.Stat(req.VSTPath); err != nil {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, fmt.Errorf("VST plugin not found: %s", req.VSTPath)))
			return
		}
	}

	res, err := h.deps.Render(r.Context(), req.MidiFile, req.VSTPath, opts)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, WrapKind(op, errKindFor(status), err))
		return
	}
	w.Header().Set("X-Render-Job", res.JobID)
	writeJSON(w, http.StatusOK, renderResponse{
		Status:     "success",
		OutputFile: res.Artifact.Path,
		JobID:      res.JobID,
		Engine:     res.Engine,
	})
}

func errKindFor(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrBackpressure
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	default:
		return errors.New(strings.ToLower(http.StatusText(status)))
	}
}
