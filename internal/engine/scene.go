package engine

import (
	"math"

	"github.com/memeshare/memeshare/backend-go/internal/document"
	"github.com/memeshare/memeshare/backend-go/internal/effects"
	"github.com/memeshare/memeshare/backend-go/internal/render"
)

const (
	selectionPadding = 5
	selectionWidth   = 2
)

var selectionDash = []float64{6, 4}

// selectionColors tint the dashed selection box per category.
var selectionColors = map[document.Category]string{
	document.CategoryShape:   "#00e5ff",
	document.CategorySticker: "#ff4081",
	document.CategoryEmoji:   "#ffd600",
	document.CategoryText:    "#76ff03",
}

// Scene is everything one frame depends on.
type Scene struct {
	Background render.Bitmap
	Width      int
	Height     int
	State      document.State
	Selection  document.Selection
}

// Paint repaints the whole frame: clear, background with effects, then every
// element back to front with the selection box drawn right after the
// selected element.
func Paint(r render.Renderer, sc Scene) {
	r.Clear()
	paintBackground(r, sc)

	counts := make(map[document.Category]int, len(document.Categories))
	for _, el := range sc.State.PaintOrder() {
		idx := counts[el.Category]
		counts[el.Category]++

		selected := !sc.Selection.Empty() &&
			sc.Selection.Category == el.Category &&
			sc.Selection.Index == idx

		r.SetObject(el.ID)
		paintElement(r, el, selected)
	}
	r.SetObject("")
}

// paintBackground draws the background centred on the canvas, rotated and
// flipped about the centre and filtered. The transform and filter never
// leak into overlay drawing.
func paintBackground(r render.Renderer, sc Scene) {
	if sc.Background.Image == nil && sc.Background.Ref == "" {
		return
	}
	e := sc.State.Effects
	w, h := float64(sc.Width), float64(sc.Height)

	r.Save()
	r.Translate(w/2, h/2)
	r.Rotate(render.Radians(e.Rotation))
	if e.FlipX {
		r.Scale(-1, 1)
	}
	if e.FlipY {
		r.Scale(1, -1)
	}
	r.SetFilter(effects.FromEffects(e))
	r.DrawImage(sc.Background, -w/2, -h/2, w, h)
	r.Restore()
}

func paintElement(r render.Renderer, el document.Element, selected bool) {
	r.Save()
	defer r.Restore()

	r.SetAlpha(el.Opacity())
	switch {
	case el.Shape != nil:
		paintShape(r, el.Shape)
		if selected {
			drawSelection(r, el.Category, Bounds(el, r.MeasureText))
		}
	case el.Glyph != nil:
		paintGlyph(r, el, selected)
	case el.Text != nil:
		paintText(r, el, selected)
	}
}

func paintShape(r render.Renderer, s *document.Shape) {
	switch s.Kind {
	case document.ShapeRectangle:
		p := render.NewPath().Rect(s.X-s.Width/2, s.Y-s.Height/2, s.Width, s.Height)
		fillOrStroke(r, p, s)
	case document.ShapeCircle:
		p := render.NewPath().Circle(s.X, s.Y, s.Radius)
		fillOrStroke(r, p, s)
	case document.ShapeLine:
		p := render.NewPath().MoveTo(s.StartX, s.StartY).LineTo(s.EndX, s.EndY)
		r.StrokePath(p, s.Color, s.StrokeWidth)
	case document.ShapeArrow:
		r.StrokePath(arrowPath(s), s.Color, s.StrokeWidth)
	}
}

func fillOrStroke(r render.Renderer, p *render.Path, s *document.Shape) {
	if s.Filled {
		r.FillPath(p, s.Color)
		return
	}
	r.StrokePath(p, s.StrokeColor, s.StrokeWidth)
}

// arrowPath is the shaft plus a two-stroke head at the end point, opened
// 30° either side of the shaft. Each head stroke is one stroke width long.
func arrowPath(s *document.Shape) *render.Path {
	angle := math.Atan2(s.EndY-s.StartY, s.EndX-s.StartX)
	head := s.StrokeWidth

	p := render.NewPath().MoveTo(s.StartX, s.StartY).LineTo(s.EndX, s.EndY)
	for _, side := range []float64{-math.Pi / 6, math.Pi / 6} {
		p.MoveTo(s.EndX, s.EndY)
		p.LineTo(s.EndX-head*math.Cos(angle+side), s.EndY-head*math.Sin(angle+side))
	}
	return p
}

// paintGlyph draws a sticker or emoji centred on its anchor, rotated about
// that anchor.
func paintGlyph(r render.Renderer, el document.Element, selected bool) {
	g := el.Glyph
	r.Translate(g.X, g.Y)
	if g.Rotation != 0 {
		r.Rotate(render.Radians(g.Rotation))
	}
	r.DrawGlyphs(render.Glyphs{
		Text:  g.Glyph,
		Font:  render.Font{Family: "sans-serif", Size: g.Size},
		Align: render.AlignCenter,
		Fill:  "#000000",
	})
	if selected {
		drawSelection(r, el.Category, centered(0, 0, g.Size, g.Size))
	}
}

// paintText draws a caption at its anchor, rotated about that anchor.
func paintText(r render.Renderer, el document.Element, selected bool) {
	t := el.Text
	r.Translate(t.X, t.Y)
	if t.Rotation != 0 {
		r.Rotate(render.Radians(t.Rotation))
	}
	g := render.Glyphs{
		Text:   t.Text,
		Font:   fontOf(t),
		Align:  render.Align(t.Align),
		Fill:   t.TextColor,
		Shadow: t.Shadow,
	}
	if t.Stroked() {
		g.Stroke = t.StrokeColor
		g.StrokeWidth = t.StrokeWidth
	}
	r.DrawGlyphs(g)
	if selected {
		w := r.MeasureText(t.Text, g.Font)
		drawSelection(r, el.Category, centered(0, 0, w, t.FontSize))
	}
}

func drawSelection(r render.Renderer, c document.Category, b Rect) {
	b = b.Inset(selectionPadding)
	r.SetAlpha(1)
	r.SetDash(selectionDash...)
	r.StrokePath(render.NewPath().Rect(b.X, b.Y, b.Width, b.Height), selectionColors[c], selectionWidth)
	r.SetDash()
}
