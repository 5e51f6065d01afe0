package document

import "github.com/memeshare/memeshare/backend-go/internal/typeid"

const (
	DefaultShapeWidth  = 100
	DefaultShapeHeight = 60
	DefaultShapeRadius = 50
	DefaultSegment     = 120
	DefaultGlyphSize   = 64
	DefaultFontSize    = 48
	DefaultFontFamily  = "Impact"
)

// NewShape returns a shape of the given kind anchored at (x, y) with the
// editor's default styling.
func NewShape(kind ShapeKind, x, y float64) Element {
	s := &Shape{
		Kind:        kind,
		X:           x,
		Y:           y,
		Color:       "#ff0000",
		StrokeColor: "#000000",
		StrokeWidth: 4,
		Opacity:     50,
		Filled:      true,
	}
	switch kind {
	case ShapeRectangle:
		s.Width, s.Height = DefaultShapeWidth, DefaultShapeHeight
	case ShapeCircle:
		s.Radius = DefaultShapeRadius
	case ShapeArrow, ShapeLine:
		s.StartX, s.StartY = x-DefaultSegment/2, y
		s.EndX, s.EndY = x+DefaultSegment/2, y
		s.Filled = false
		s.Opacity = 100
	}
	return Element{ID: typeid.NewElementID(), Category: CategoryShape, Shape: s}
}

func NewSticker(glyph string, x, y float64) Element {
	return newGlyph(CategorySticker, glyph, x, y)
}

func NewEmoji(glyph string, x, y float64) Element {
	return newGlyph(CategoryEmoji, glyph, x, y)
}

func newGlyph(c Category, glyph string, x, y float64) Element {
	return Element{
		ID:       typeid.NewElementID(),
		Category: c,
		Glyph: &Glyph{
			Glyph:   glyph,
			X:       x,
			Y:       y,
			Size:    DefaultGlyphSize,
			Opacity: 100,
		},
	}
}

// NewText returns a classic meme caption: white Impact with a black outline.
func NewText(text string, x, y float64) Element {
	return Element{
		ID:       typeid.NewElementID(),
		Category: CategoryText,
		Text: &Text{
			Text:        text,
			X:           x,
			Y:           y,
			FontSize:    DefaultFontSize,
			FontFamily:  DefaultFontFamily,
			TextColor:   "#ffffff",
			StrokeColor: "#000000",
			StrokeWidth: 2,
			Bold:        true,
			Align:       AlignCenter,
			Opacity:     100,
		},
	}
}

// DefaultElement is the staged template for a category, used when a tool
// adds an element without explicit properties.
func DefaultElement(c Category) Element {
	switch c {
	case CategoryShape:
		return NewShape(ShapeRectangle, 0, 0)
	case CategorySticker:
		return NewSticker("⭐", 0, 0)
	case CategoryEmoji:
		return NewEmoji("😂", 0, 0)
	case CategoryText:
		return NewText("TEXT", 0, 0)
	}
	return Element{}
}
