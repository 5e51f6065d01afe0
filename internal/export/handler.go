package export

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/memeshare/memeshare/backend-go/internal/document"
	"github.com/memeshare/memeshare/backend-go/internal/engine"
	"github.com/memeshare/memeshare/backend-go/internal/typeid"
)

const maxBodySize = 1 << 20 // 1MB of editor state

// Request is the body of POST /export/render.
type Request struct {
	ImageURL string         `json:"imageUrl"`
	State    document.State `json:"state"`
	Quality  float64        `json:"quality"`
}

type Response struct {
	ID      string `json:"id"`
	DataURI string `json:"dataUri"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// Handler flattens editor states into JPEGs server-side, with the same
// engine and raster renderer the editor exports with.
type Handler struct {
	loader  engine.Loader
	quality float64
	timeout time.Duration
}

func NewHandler(loader engine.Loader, quality float64, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Handler{loader: loader, quality: quality, timeout: timeout}
}

// Render handles POST /export/render.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	req := Request{State: document.NewState()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "imageUrl is required")
		return
	}

	eng := engine.New(engine.Options{Quality: h.quality})
	if err := eng.Replace(req.State); err != nil {
		writeError(w, http.StatusBadRequest, "invalid state: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	if err := eng.Load(ctx, h.loader, req.ImageURL); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	uri, err := eng.Export(req.Quality)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	width, height := eng.Size()
	resp := Response{
		ID:      typeid.NewExportID(),
		DataURI: uri,
		Width:   width,
		Height:  height,
	}
	slog.Info("export complete", "id", resp.ID, "bytes", len(uri), "duration", time.Since(start))
	writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrLoadFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrNotReady):
		return http.StatusServiceUnavailable
	default:
		slog.Error("export failed", "error", err)
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
