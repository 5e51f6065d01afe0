package asset

import (
	"encoding/json"
	"image"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Template describes one stored template image.
type Template struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   string `json:"type"`
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

// Handler serves the template image store.
type Handler struct {
	dir string // directory holding template images
}

// NewHandler creates a new template handler reading from dir.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir}
}

// List handles GET /templates.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Templates()
	if err != nil {
		slog.Error("list templates", "error", err)
		http.Error(w, "failed to list templates", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// Templates reads the dimensions of every image in the store. Unreadable
// files are skipped.
func (h *Handler) Templates() ([]Template, error) {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		return nil, err
	}
	out := make([]Template, 0, len(entries))
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || !imageExts[ext] {
			continue
		}
		cfg, format, err := h.config(e.Name())
		if err != nil {
			slog.Warn("skip template", "name", e.Name(), "error", err)
			continue
		}
		out = append(out, Template{
			ID:     strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Name:   e.Name(),
			URL:    Prefix + e.Name(),
			Width:  cfg.Width,
			Height: cfg.Height,
			Type:   format,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (h *Handler) config(name string) (image.Config, string, error) {
	f, err := os.Open(filepath.Join(h.dir, name))
	if err != nil {
		return image.Config{}, "", err
	}
	defer f.Close()
	return image.DecodeConfig(f)
}

// Serve returns an http.Handler that serves stored template files with
// caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix(Prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		fs.ServeHTTP(w, r)
	}))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
