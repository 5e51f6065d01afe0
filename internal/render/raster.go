package render

import (
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/memeshare/memeshare/backend-go/internal/effects"
)

// outlineSteps is how many offset copies approximate a text outline; gg has
// no native glyph stroking.
const outlineSteps = 16

type rasterState struct {
	alpha  float64
	filter effects.Filter
}

// Raster is a Renderer backed by a gg software context.
type Raster struct {
	dc    *gg.Context
	state rasterState
	stack []rasterState
	faces map[faceKey]font.Face
}

func NewRaster(width, height int) *Raster {
	return &Raster{
		dc:    gg.NewContext(width, height),
		state: rasterState{alpha: 1, filter: effects.None},
		faces: make(map[faceKey]font.Face),
	}
}

// Image returns the painted pixels.
func (r *Raster) Image() image.Image { return r.dc.Image() }

func (r *Raster) Size() (int, int) { return r.dc.Width(), r.dc.Height() }

func (r *Raster) Clear() {
	r.dc.Push()
	r.dc.Identity()
	r.dc.SetColor(color.Transparent)
	r.dc.Clear()
	r.dc.Pop()
}

func (r *Raster) Save() {
	r.dc.Push()
	r.stack = append(r.stack, r.state)
}

func (r *Raster) Restore() {
	if len(r.stack) == 0 {
		return
	}
	r.dc.Pop()
	r.state = r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
}

func (r *Raster) Translate(x, y float64)     { r.dc.Translate(x, y) }
func (r *Raster) Rotate(radians float64)     { r.dc.Rotate(radians) }
func (r *Raster) Scale(sx, sy float64)       { r.dc.Scale(sx, sy) }
func (r *Raster) SetAlpha(alpha float64)     { r.state.alpha = alpha }
func (r *Raster) SetFilter(f effects.Filter) { r.state.filter = f }
func (r *Raster) SetObject(string)           {}

func (r *Raster) SetDash(dashes ...float64) {
	r.dc.SetDash(dashes...)
}

func (r *Raster) DrawImage(src Bitmap, x, y, w, h float64) {
	if src.Image == nil || w <= 0 || h <= 0 {
		return
	}
	img := image.Image(effects.Apply(src.Image, r.state.filter))
	b := img.Bounds()
	if b.Dx() != int(math.Round(w)) || b.Dy() != int(math.Round(h)) {
		img = imaging.Resize(img, int(math.Round(w)), int(math.Round(h)), imaging.Linear)
	}
	if r.state.alpha < 1 {
		img = fade(img, r.state.alpha)
	}
	r.dc.Push()
	r.dc.Translate(x, y)
	r.dc.DrawImage(img, 0, 0)
	r.dc.Pop()
}

func (r *Raster) FillPath(p *Path, fill string) {
	c, ok := r.color(fill)
	if !ok {
		return
	}
	r.trace(p)
	r.dc.SetColor(c)
	r.dc.Fill()
}

func (r *Raster) StrokePath(p *Path, stroke string, width float64) {
	c, ok := r.color(stroke)
	if !ok || width <= 0 {
		return
	}
	r.trace(p)
	r.dc.SetColor(c)
	r.dc.SetLineWidth(width)
	r.dc.Stroke()
}

func (r *Raster) DrawGlyphs(g Glyphs) {
	face, err := r.face(g.Font)
	if err != nil {
		slog.Warn("load font face", "family", g.Font.Family, "error", err)
		return
	}
	r.dc.SetFontFace(face)
	ax := g.Align.anchor()

	for _, l := range g.layers() {
		if c, ok := r.color(l.color); ok {
			r.dc.SetColor(c)
			r.dc.DrawStringAnchored(g.Text, g.X+l.dx, g.Y+l.dy, ax, 0.5)
		}
	}
}

// glyphLayer is one pass of a text draw, offset from the glyph origin.
type glyphLayer struct {
	color  string
	dx, dy float64
}

// layers lists the passes back to front: drop shadow, the outline ring,
// then the fill. A "none" or zero-width stroke draws no outline.
func (g Glyphs) layers() []glyphLayer {
	var out []glyphLayer
	if g.Shadow {
		out = append(out, glyphLayer{color: ShadowColor, dx: ShadowOffset, dy: ShadowOffset})
	}
	if g.StrokeWidth > 0 && g.Stroke != "" && g.Stroke != "none" {
		for i := 0; i < outlineSteps; i++ {
			a := 2 * math.Pi * float64(i) / outlineSteps
			out = append(out, glyphLayer{color: g.Stroke, dx: math.Cos(a) * g.StrokeWidth, dy: math.Sin(a) * g.StrokeWidth})
		}
	}
	return append(out, glyphLayer{color: g.Fill})
}

func (r *Raster) MeasureText(text string, f Font) float64 {
	return Measure(text, f)
}

func (r *Raster) face(f Font) (font.Face, error) {
	key := keyFor(f)
	if face, ok := r.faces[key]; ok {
		return face, nil
	}
	face, err := NewFace(f)
	if err != nil {
		return nil, err
	}
	r.faces[key] = face
	return face, nil
}

// color parses s and applies the current alpha. Fully transparent colours
// report false so callers can skip the draw.
func (r *Raster) color(s string) (color.NRGBA, bool) {
	c, err := ParseColor(s)
	if err != nil {
		slog.Debug("unparseable color", "color", s, "error", err)
		return color.NRGBA{}, false
	}
	c = withAlpha(c, r.state.alpha)
	return c, c.A > 0
}

func (r *Raster) trace(p *Path) {
	r.dc.NewSubPath()
	for _, c := range p.Commands {
		switch c.Op {
		case "M":
			r.dc.MoveTo(c.Args[0], c.Args[1])
		case "L":
			r.dc.LineTo(c.Args[0], c.Args[1])
		case "A":
			r.dc.DrawArc(c.Args[0], c.Args[1], c.Args[2], c.Args[3], c.Args[4])
		case "Z":
			r.dc.ClosePath()
		}
	}
}

func fade(img image.Image, alpha float64) image.Image {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.A = uint8(float64(c.A)*alpha + 0.5)
		return c
	})
}
