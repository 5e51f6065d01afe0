package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/memeshare/memeshare/backend-go/internal/document"
	"github.com/memeshare/memeshare/backend-go/internal/preset"
	"github.com/memeshare/memeshare/backend-go/internal/render"
)

var (
	// ErrNotReady is returned when exporting or making a history-recording
	// edit before a background image has loaded.
	ErrNotReady = errors.New("canvas not ready")
	// ErrLoadFailed wraps background image load failures.
	ErrLoadFailed = errors.New("background image load failed")
	// ErrStaleLoad reports a load completion for a superseded request.
	ErrStaleLoad = errors.New("stale image load")
)

// Status is the background image lifecycle.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusLoading    Status = "loading"
	StatusReady      Status = "ready"
	StatusLoadFailed Status = "load-failed"
)

// DefaultPadding keeps dragged elements this far inside the canvas edges.
const DefaultPadding = 20

// DefaultQuality is the JPEG quality used by Save.
const DefaultQuality = 0.9

// DragPolicy decides how drags are recorded in history.
type DragPolicy int

const (
	// DragCoalesce pushes one snapshot when a drag that moved ends.
	DragCoalesce DragPolicy = iota
	// DragExcluded never records drags. The next undo discards them
	// together with the last structural edit.
	DragExcluded
)

// Loader fetches and decodes a background image.
type Loader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// SurfaceFunc creates the live drawing surface for a canvas size.
type SurfaceFunc func(width, height int) render.Renderer

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Surface      SurfaceFunc
	Presets      *preset.Catalog
	Padding      float64
	Quality      float64
	HistoryLimit int
	DragPolicy   DragPolicy
	OnSave       func(dataURI string)
	OnCancel     func()
}

// Engine owns one editing session: the background image, the editable
// state, its history and the live canvas. Every mutation is followed by
// exactly one repaint once the background is loaded.
type Engine struct {
	mu sync.Mutex

	// Background image state
	url        string
	generation uint64
	status     Status
	loadErr    error
	background render.Bitmap
	width      int
	height     int

	// Editable state
	state     document.State
	selection document.Selection
	tool      document.Category
	staged    map[document.Category]document.Element
	history   *History
	drag      dragState

	// Live surface
	surface    render.Renderer
	newSurface SurfaceFunc
	frames     int

	presets    *preset.Catalog
	padding    float64
	quality    float64
	dragPolicy DragPolicy
	onSave     func(string)
	onCancel   func()
}

// New creates an engine with an empty state.
func New(opts Options) *Engine {
	e := &Engine{
		status:     StatusIdle,
		state:      document.NewState(),
		tool:       document.CategoryText,
		staged:     make(map[document.Category]document.Element),
		newSurface: opts.Surface,
		presets:    opts.Presets,
		padding:    opts.Padding,
		quality:    opts.Quality,
		dragPolicy: opts.DragPolicy,
		onSave:     opts.OnSave,
		onCancel:   opts.OnCancel,
	}
	e.selection = document.NoSelection(e.tool)
	limit := opts.HistoryLimit
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	e.history = NewHistory(limit)
	if e.newSurface == nil {
		e.newSurface = func(w, h int) render.Renderer { return render.NewRecorder(w, h) }
	}
	if e.presets == nil {
		e.presets = preset.Default()
	}
	if e.padding <= 0 {
		e.padding = DefaultPadding
	}
	if e.quality <= 0 || e.quality > 1 {
		e.quality = DefaultQuality
	}
	for _, c := range document.Categories {
		e.staged[c] = document.DefaultElement(c)
	}
	return e
}

// --- Background image loading ---

// LoadTicket identifies one image request. Hosts that fetch images
// themselves hand it back to CompleteLoad.
type LoadTicket struct {
	URL        string `json:"url"`
	Generation uint64 `json:"generation"`
}

// RequestImage records url as the latest requested background and gates
// rendering until CompleteLoad delivers it.
func (e *Engine) RequestImage(url string) LoadTicket {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.generation++
	e.url = url
	e.status = StatusLoading
	e.loadErr = nil
	return LoadTicket{URL: url, Generation: e.generation}
}

// CompleteLoad delivers the result of a request. Completions for anything
// but the latest request are dropped with ErrStaleLoad.
func (e *Engine) CompleteLoad(t LoadTicket, img image.Image, loadErr error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t.Generation != e.generation || t.URL != e.url {
		slog.Debug("dropping stale image load", "url", t.URL, "latest", e.url)
		return ErrStaleLoad
	}
	if loadErr == nil && img == nil {
		loadErr = errors.New("no image decoded")
	}
	if loadErr == nil && (img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0) {
		loadErr = errors.New("image has zero size")
	}
	if loadErr != nil {
		e.status = StatusLoadFailed
		e.loadErr = fmt.Errorf("%w: %s: %v", ErrLoadFailed, t.URL, loadErr)
		slog.Warn("background image load failed", "url", t.URL, "error", loadErr)
		return e.loadErr
	}

	b := img.Bounds()
	e.background = render.Bitmap{Ref: t.URL, Image: img}
	e.width, e.height = b.Dx(), b.Dy()
	e.surface = e.newSurface(e.width, e.height)
	e.status = StatusReady
	if e.history.Len() == 0 {
		e.history.Push(e.state)
	}
	e.repaint()
	return nil
}

// Load requests url, fetches it with l and completes the request.
func (e *Engine) Load(ctx context.Context, l Loader, url string) error {
	t := e.RequestImage(url)
	img, err := l.Load(ctx, url)
	return e.CompleteLoad(t, img, err)
}

// Retry reloads the last requested image after a failure.
func (e *Engine) Retry(ctx context.Context, l Loader) error {
	e.mu.Lock()
	url, status := e.url, e.status
	e.mu.Unlock()

	if url == "" {
		return fmt.Errorf("%w: no image requested", ErrNotReady)
	}
	if status != StatusLoadFailed {
		return nil
	}
	return e.Load(ctx, l, url)
}

// --- Queries ---

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// LoadError returns the last load failure, if any.
func (e *Engine) LoadError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadErr
}

// Size returns the canvas size, zero until an image has loaded.
func (e *Engine) Size() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width, e.height
}

// State returns a deep copy of the editable state.
func (e *Engine) State() document.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// StateJSON returns the editable state as JSON.
func (e *Engine) StateJSON() string {
	data, _ := json.Marshal(e.State())
	return string(data)
}

func (e *Engine) Selection() document.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection
}

func (e *Engine) Tool() document.Category {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool
}

// HistoryInfo reports the history pointer and length.
func (e *Engine) HistoryInfo() (pointer, length int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Pointer(), e.history.Len()
}

func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanUndo()
}

func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanRedo()
}

// Frames counts repaints since the engine was created.
func (e *Engine) Frames() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// Presets returns the preset catalogue in use.
func (e *Engine) Presets() *preset.Catalog {
	return e.presets
}

// Render returns the draw commands of the last repaint as JSON. It is "[]"
// until the background has loaded or when the surface is not a Recorder.
func (e *Engine) Render() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.surface.(*render.Recorder)
	if !ok {
		return "[]"
	}
	out, _ := rec.JSON()
	return out
}

// SelectionBounds returns the selected element's box as JSON.
func (e *Engine) SelectionBounds() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var r Rect
	if el, ok := e.state.Get(e.selection.Category, e.selection.Index); ok {
		r = Bounds(el, e.measure)
	}
	data, _ := json.Marshal(r)
	return string(data)
}

// --- internals (caller holds e.mu) ---

// repaint paints the current state onto the live surface. Before the
// background has loaded nothing is painted.
func (e *Engine) repaint() {
	if e.status != StatusReady || e.surface == nil {
		return
	}
	Paint(e.surface, e.scene(e.selection))
	e.frames++
}

func (e *Engine) scene(sel document.Selection) Scene {
	return Scene{
		Background: e.background,
		Width:      e.width,
		Height:     e.height,
		State:      e.state,
		Selection:  sel,
	}
}

func (e *Engine) measure(text string, f render.Font) float64 {
	if e.surface != nil {
		return e.surface.MeasureText(text, f)
	}
	return render.Measure(text, f)
}

// commit installs next as the current state, pushes it onto the history
// when structural, and repaints.
func (e *Engine) commit(next document.State, structural bool) {
	e.state = next
	if structural {
		e.history.Push(e.state)
	}
	e.repaint()
}

// validSelection clears the selection index if it no longer addresses an
// element.
func (e *Engine) validSelection() {
	if _, ok := e.state.Get(e.selection.Category, e.selection.Index); !ok {
		e.selection = document.NoSelection(e.selection.Category)
	}
}
