// Package render defines the drawing surface the editor paints onto and two
// implementations of it: a Recorder that captures draw commands for a browser
// Canvas2D (and for tests), and a Raster that paints pixels with gg.
package render

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/memeshare/memeshare/backend-go/internal/effects"
)

// Renderer is an immediate-mode 2D surface. Transform, alpha, dash and filter
// are part of the saved state.
type Renderer interface {
	Size() (int, int)
	Clear()
	Save()
	Restore()
	Translate(x, y float64)
	Rotate(radians float64)
	Scale(sx, sy float64)
	SetAlpha(alpha float64)
	SetDash(dashes ...float64)
	// SetFilter applies to subsequent DrawImage calls only.
	SetFilter(f effects.Filter)
	// SetObject tags subsequent drawing with an element ID; empty clears it.
	SetObject(id string)
	DrawImage(src Bitmap, x, y, w, h float64)
	FillPath(p *Path, fill string)
	StrokePath(p *Path, stroke string, width float64)
	DrawGlyphs(g Glyphs)
	MeasureText(text string, f Font) float64
}

// Bitmap is a decoded image plus the reference the browser knows it by.
type Bitmap struct {
	Ref   string
	Image image.Image
}

// Font mirrors the parts of a CSS font shorthand the editor uses.
type Font struct {
	Family string
	Size   float64
	Bold   bool
	Italic bool
}

// CSS returns the Canvas2D font string, e.g. "italic bold 48px Impact".
func (f Font) CSS() string {
	var b strings.Builder
	if f.Italic {
		b.WriteString("italic ")
	}
	if f.Bold {
		b.WriteString("bold ")
	}
	fmt.Fprintf(&b, "%gpx %s", f.Size, f.Family)
	return b.String()
}

type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// anchor returns the horizontal anchor fraction for the alignment.
func (a Align) anchor() float64 {
	switch a {
	case AlignLeft:
		return 0
	case AlignRight:
		return 1
	default:
		return 0.5
	}
}

// Glyphs is a run of text vertically centred on Y. Paint order is shadow,
// then stroke, then fill.
type Glyphs struct {
	Text        string
	X           float64
	Y           float64
	Font        Font
	Align       Align
	Fill        string
	Stroke      string
	StrokeWidth float64
	Shadow      bool
}

const (
	ShadowColor  = "rgba(0,0,0,0.8)"
	ShadowOffset = 3.0
	ShadowBlur   = 4.0
	TextBaseline = "middle"
)

// PathCommand is one segment in Canvas2D terms. It marshals as an array,
// e.g. ["M", x, y] or ["A", cx, cy, r, a0, a1].
type PathCommand struct {
	Op   string
	Args []float64
}

func (c PathCommand) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(c.Args)+1)
	out = append(out, c.Op)
	for _, a := range c.Args {
		out = append(out, a)
	}
	return json.Marshal(out)
}

func (c *PathCommand) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("empty path command")
	}
	if err := json.Unmarshal(raw[0], &c.Op); err != nil {
		return err
	}
	c.Args = make([]float64, len(raw)-1)
	for i, r := range raw[1:] {
		if err := json.Unmarshal(r, &c.Args[i]); err != nil {
			return err
		}
	}
	return nil
}

// Path is a list of path commands in local coordinates.
type Path struct {
	Commands []PathCommand
}

func NewPath() *Path { return &Path{} }

func (p *Path) MoveTo(x, y float64) *Path {
	p.Commands = append(p.Commands, PathCommand{Op: "M", Args: []float64{x, y}})
	return p
}

func (p *Path) LineTo(x, y float64) *Path {
	p.Commands = append(p.Commands, PathCommand{Op: "L", Args: []float64{x, y}})
	return p
}

// Arc adds a clockwise arc around (cx, cy) from a0 to a1 radians.
func (p *Path) Arc(cx, cy, r, a0, a1 float64) *Path {
	p.Commands = append(p.Commands, PathCommand{Op: "A", Args: []float64{cx, cy, r, a0, a1}})
	return p
}

func (p *Path) Close() *Path {
	p.Commands = append(p.Commands, PathCommand{Op: "Z"})
	return p
}

// Rect adds a closed rectangle with its top-left corner at (x, y).
func (p *Path) Rect(x, y, w, h float64) *Path {
	return p.MoveTo(x, y).LineTo(x+w, y).LineTo(x+w, y+h).LineTo(x, y+h).Close()
}

// Circle adds a full circle.
func (p *Path) Circle(cx, cy, r float64) *Path {
	return p.MoveTo(cx+r, cy).Arc(cx, cy, r, 0, 2*math.Pi).Close()
}
