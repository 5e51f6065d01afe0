package engine

import (
	"math"

	"github.com/memeshare/memeshare/backend-go/internal/document"
	"github.com/memeshare/memeshare/backend-go/internal/render"
)

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Inset grows the rect by d on every side (shrinks for negative d).
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// centered returns a w×h rect centred on (x, y).
func centered(x, y, w, h float64) Rect {
	return Rect{X: x - w/2, Y: y - h/2, Width: w, Height: h}
}

// ClientRect is the on-screen box of the canvas element in CSS pixels.
type ClientRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ScreenToCanvas converts client coordinates to canvas-space pixels,
// correcting for CSS scaling of the canvas element.
func ScreenToCanvas(clientX, clientY float64, canvasW, canvasH int, rect ClientRect) (float64, float64) {
	sx, sy := 1.0, 1.0
	if rect.Width > 0 {
		sx = float64(canvasW) / rect.Width
	}
	if rect.Height > 0 {
		sy = float64(canvasH) / rect.Height
	}
	return (clientX - rect.Left) * sx, (clientY - rect.Top) * sy
}

// MeasureFunc returns the advance width of text set in a font.
type MeasureFunc func(text string, f render.Font) float64

// hitOrder is the priority in which categories are tested. It deliberately
// differs from paint order: stickers win over shapes.
var hitOrder = []document.Category{
	document.CategorySticker,
	document.CategoryShape,
	document.CategoryEmoji,
	document.CategoryText,
}

// HitTest returns the element under (x, y). Categories are tested in
// hitOrder; within a category the topmost element wins.
func HitTest(s document.State, x, y float64, measure MeasureFunc) (document.Selection, bool) {
	for _, c := range hitOrder {
		els := s.Of(c)
		for i := len(els) - 1; i >= 0; i-- {
			if contains(els[i], x, y, measure) {
				return document.Selection{Category: c, Index: i}, true
			}
		}
	}
	return document.Selection{}, false
}

func contains(el document.Element, x, y float64, measure MeasureFunc) bool {
	switch {
	case el.Shape != nil:
		s := el.Shape
		switch s.Kind {
		case document.ShapeRectangle:
			return centered(s.X, s.Y, s.Width, s.Height).Contains(x, y)
		case document.ShapeCircle:
			return math.Hypot(x-s.X, y-s.Y) <= s.Radius
		}
		return false
	case el.Glyph != nil:
		g := el.Glyph
		return centered(g.X, g.Y, g.Size, g.Size).Contains(x, y)
	case el.Text != nil:
		return textBounds(el.Text, measure).Contains(x, y)
	}
	return false
}

// Bounds returns the element's axis-aligned box in its own unrotated frame.
func Bounds(el document.Element, measure MeasureFunc) Rect {
	switch {
	case el.Shape != nil:
		s := el.Shape
		switch s.Kind {
		case document.ShapeRectangle:
			return centered(s.X, s.Y, s.Width, s.Height)
		case document.ShapeCircle:
			return centered(s.X, s.Y, 2*s.Radius, 2*s.Radius)
		default:
			minX, maxX := min(s.StartX, s.EndX), max(s.StartX, s.EndX)
			minY, maxY := min(s.StartY, s.EndY), max(s.StartY, s.EndY)
			return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}.Inset(s.StrokeWidth)
		}
	case el.Glyph != nil:
		return centered(el.Glyph.X, el.Glyph.Y, el.Glyph.Size, el.Glyph.Size)
	case el.Text != nil:
		return textBounds(el.Text, measure)
	}
	return Rect{}
}

// textBounds is fontSize tall and as wide as the measured text, centred on
// the anchor. Alignment is ignored here as it is for hit testing.
func textBounds(t *document.Text, measure MeasureFunc) Rect {
	w := measure(t.Text, fontOf(t))
	return centered(t.X, t.Y, w, t.FontSize)
}

func fontOf(t *document.Text) render.Font {
	return render.Font{Family: t.FontFamily, Size: t.FontSize, Bold: t.Bold, Italic: t.Italic}
}
