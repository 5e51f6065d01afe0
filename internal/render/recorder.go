package render

import (
	"encoding/json"

	"github.com/memeshare/memeshare/backend-go/internal/effects"
)

// Command is a single drawing operation for the frontend to execute on a
// Canvas2D context. Each command carries the full state it needs, so the
// frontend never has to track save/restore.
type Command struct {
	Op          string        `json:"op"`                    // "clear", "image", "fill", "stroke", "text"
	ObjectID    string        `json:"objectId,omitempty"`    // For hit correlation
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand `json:"path,omitempty"`        // Path data for fill/stroke ops
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	Opacity     float64       `json:"opacity"`               // Global alpha
	Dash        []float64     `json:"dash,omitempty"`        // Line dash pattern
	Filter      string        `json:"filter,omitempty"`      // CSS filter for image ops
	ImageRef    string        `json:"imageRef,omitempty"`    // Image reference for image ops
	X           float64       `json:"x,omitempty"`
	Y           float64       `json:"y,omitempty"`
	Width       float64       `json:"width,omitempty"`
	Height      float64       `json:"height,omitempty"`
	Text        string        `json:"text,omitempty"`
	Font        string        `json:"font,omitempty"`
	Align       Align         `json:"align,omitempty"`
	Baseline    string        `json:"baseline,omitempty"`
	Shadow      bool          `json:"shadow,omitempty"`
}

type recorderState struct {
	matrix Matrix2D
	alpha  float64
	dash   []float64
	filter effects.Filter
}

// Recorder is a Renderer that captures commands instead of painting.
type Recorder struct {
	width, height int
	state         recorderState
	stack         []recorderState
	object        string
	commands      []Command
}

func NewRecorder(width, height int) *Recorder {
	return &Recorder{
		width:  width,
		height: height,
		state:  recorderState{matrix: Identity(), alpha: 1, filter: effects.None},
	}
}

// Resize changes the surface size and drops recorded commands.
func (r *Recorder) Resize(width, height int) {
	r.width, r.height = width, height
	r.Reset()
}

// Reset drops recorded commands and restores the initial state.
func (r *Recorder) Reset() {
	r.commands = nil
	r.stack = nil
	r.object = ""
	r.state = recorderState{matrix: Identity(), alpha: 1, filter: effects.None}
}

// Commands returns the commands recorded since the last Reset.
func (r *Recorder) Commands() []Command {
	return r.commands
}

// JSON serializes the recorded commands.
func (r *Recorder) JSON() (string, error) {
	if len(r.commands) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(r.commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

func (r *Recorder) Size() (int, int) { return r.width, r.height }

// Clear starts a new frame: previously recorded commands are discarded.
func (r *Recorder) Clear() {
	r.commands = r.commands[:0]
	r.emit(Command{Op: "clear", Width: float64(r.width), Height: float64(r.height)})
}

func (r *Recorder) Save() {
	saved := r.state
	saved.dash = append([]float64(nil), r.state.dash...)
	r.stack = append(r.stack, saved)
}

func (r *Recorder) Restore() {
	if len(r.stack) == 0 {
		return
	}
	r.state = r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
}

func (r *Recorder) Translate(x, y float64) {
	r.state.matrix = r.state.matrix.Translate(x, y)
}

func (r *Recorder) Rotate(radians float64) {
	r.state.matrix = r.state.matrix.Rotate(radians)
}

func (r *Recorder) Scale(sx, sy float64) {
	r.state.matrix = r.state.matrix.Scale(sx, sy)
}

func (r *Recorder) SetAlpha(alpha float64) { r.state.alpha = alpha }

func (r *Recorder) SetDash(dashes ...float64) {
	r.state.dash = append([]float64(nil), dashes...)
}

func (r *Recorder) SetFilter(f effects.Filter) { r.state.filter = f }

func (r *Recorder) SetObject(id string) { r.object = id }

// Matrix returns the current transform.
func (r *Recorder) Matrix() Matrix2D { return r.state.matrix }

func (r *Recorder) DrawImage(src Bitmap, x, y, w, h float64) {
	r.emit(Command{
		Op:       "image",
		ImageRef: src.Ref,
		Filter:   r.state.filter.CSS(),
		X:        x,
		Y:        y,
		Width:    w,
		Height:   h,
	})
}

func (r *Recorder) FillPath(p *Path, fill string) {
	r.emit(Command{Op: "fill", Path: clonePath(p), Fill: fill})
}

func (r *Recorder) StrokePath(p *Path, stroke string, width float64) {
	r.emit(Command{Op: "stroke", Path: clonePath(p), Stroke: stroke, StrokeWidth: width, Dash: r.state.dash})
}

func (r *Recorder) DrawGlyphs(g Glyphs) {
	r.emit(Command{
		Op:          "text",
		Text:        g.Text,
		X:           g.X,
		Y:           g.Y,
		Font:        g.Font.CSS(),
		Align:       g.Align,
		Baseline:    TextBaseline,
		Fill:        g.Fill,
		Stroke:      g.Stroke,
		StrokeWidth: g.StrokeWidth,
		Shadow:      g.Shadow,
	})
}

func (r *Recorder) MeasureText(text string, f Font) float64 {
	return Measure(text, f)
}

func (r *Recorder) emit(c Command) {
	c.ObjectID = r.object
	c.Opacity = r.state.alpha
	if !r.state.matrix.IsIdentity() {
		c.Transform = r.state.matrix.ToSlice()
	}
	r.commands = append(r.commands, c)
}

func clonePath(p *Path) []PathCommand {
	if p == nil {
		return nil
	}
	out := make([]PathCommand, len(p.Commands))
	for i, c := range p.Commands {
		out[i] = PathCommand{Op: c.Op, Args: append([]float64(nil), c.Args...)}
	}
	return out
}
