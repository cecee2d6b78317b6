package api

import (
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// DownloadHandler serves rendered artifacts.
type DownloadHandler struct {
	deps Dependencies
}

// NewDownloadHandler creates a new download handler.
func NewDownloadHandler(deps Dependencies) *DownloadHandler {
	return &DownloadHandler{deps: deps}
}

// HandleDownload handles GET /download/{filename} requests.
func (h *DownloadHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	const op = "api.download"
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/download/")
	f, info, err := h.deps.OpenArtifact(name)
	if err != nil {
		status, code := classify(err)
		if status == http.StatusNotFound {
			err = fmt.Errorf("file not found: %s: %w", name, err)
		}
		writeError(w, status, code, WrapKind(op, errKindFor(status), err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}
