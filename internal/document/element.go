package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	ErrInvalidIndex    = errors.New("invalid element index")
	ErrInvalidCategory = errors.New("invalid category")
	ErrUnknownKey      = errors.New("unknown property")
	ErrInvalidValue    = errors.New("invalid property value")
	ErrEmptyText       = errors.New("text must not be empty")
)

// Clone deep-copies the element's variant payload.
func (el Element) Clone() Element {
	out := Element{ID: el.ID, Category: el.Category}
	if el.Shape != nil {
		s := *el.Shape
		out.Shape = &s
	}
	if el.Glyph != nil {
		g := *el.Glyph
		out.Glyph = &g
	}
	if el.Text != nil {
		t := *el.Text
		out.Text = &t
	}
	return out
}

func (el Element) Equal(o Element) bool {
	return el.ID == o.ID && el.SameContent(o)
}

// SameContent is Equal without the ID, which is freshly generated on every
// add and duplicate.
func (el Element) SameContent(o Element) bool {
	if el.Category != o.Category {
		return false
	}
	switch {
	case (el.Shape == nil) != (o.Shape == nil),
		(el.Glyph == nil) != (o.Glyph == nil),
		(el.Text == nil) != (o.Text == nil):
		return false
	}
	if el.Shape != nil && *el.Shape != *o.Shape {
		return false
	}
	if el.Glyph != nil && *el.Glyph != *o.Glyph {
		return false
	}
	if el.Text != nil && *el.Text != *o.Text {
		return false
	}
	return true
}

// Validate checks that the payload matches the category.
func (el Element) Validate() error {
	switch el.Category {
	case CategoryShape:
		if el.Shape == nil {
			return fmt.Errorf("%w: shape element without shape data", ErrInvalidValue)
		}
		if !el.Shape.Kind.Valid() {
			return fmt.Errorf("%w: shape kind %q", ErrInvalidValue, el.Shape.Kind)
		}
	case CategorySticker, CategoryEmoji:
		if el.Glyph == nil {
			return fmt.Errorf("%w: %s element without glyph data", ErrInvalidValue, el.Category)
		}
		if el.Glyph.Glyph == "" {
			return fmt.Errorf("%w: empty glyph", ErrInvalidValue)
		}
	case CategoryText:
		if el.Text == nil {
			return fmt.Errorf("%w: text element without text data", ErrInvalidValue)
		}
		if el.Text.Text == "" {
			return ErrEmptyText
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCategory, el.Category)
	}
	return nil
}

// Position returns the element's anchor point.
func (el Element) Position() (float64, float64) {
	switch {
	case el.Shape != nil:
		return el.Shape.X, el.Shape.Y
	case el.Glyph != nil:
		return el.Glyph.X, el.Glyph.Y
	case el.Text != nil:
		return el.Text.X, el.Text.Y
	}
	return 0, 0
}

// Translate moves the element by (dx, dy). Segment endpoints move with it.
func (el Element) Translate(dx, dy float64) {
	switch {
	case el.Shape != nil:
		el.Shape.translate(dx, dy)
	case el.Glyph != nil:
		el.Glyph.X += dx
		el.Glyph.Y += dy
	case el.Text != nil:
		el.Text.X += dx
		el.Text.Y += dy
	}
}

// MoveTo places the element's anchor at (x, y).
func (el Element) MoveTo(x, y float64) {
	cx, cy := el.Position()
	el.Translate(x-cx, y-cy)
}

// Opacity returns the element opacity as a 0..1 fraction.
func (el Element) Opacity() float64 {
	var pct float64
	switch {
	case el.Shape != nil:
		pct = el.Shape.Opacity
	case el.Glyph != nil:
		pct = el.Glyph.Opacity
	case el.Text != nil:
		pct = el.Text.Opacity
	}
	return clamp(pct/100, 0, 1)
}

// Set replaces one field named by its JSON key. Values arrive loosely typed
// from the UI (numbers may be strings).
func (el Element) Set(key string, value any) error {
	switch {
	case el.Shape != nil:
		return el.Shape.set(key, value)
	case el.Glyph != nil:
		return el.Glyph.set(key, value)
	case el.Text != nil:
		return el.Text.set(key, value)
	}
	return fmt.Errorf("%w: element %q has no payload", ErrInvalidValue, el.ID)
}

func (s *Shape) translate(dx, dy float64) {
	s.X += dx
	s.Y += dy
	if s.Kind.Segment() {
		s.StartX += dx
		s.StartY += dy
		s.EndX += dx
		s.EndY += dy
	}
}

// recenter keeps a segment's anchor at the midpoint of its endpoints.
func (s *Shape) recenter() {
	if s.Kind.Segment() {
		s.X = (s.StartX + s.EndX) / 2
		s.Y = (s.StartY + s.EndY) / 2
	}
}

func (s *Shape) set(key string, value any) error {
	var err error
	var v float64
	switch key {
	case "kind":
		var k string
		if k, err = toString(value); err == nil {
			if !ShapeKind(k).Valid() {
				return fmt.Errorf("%w: shape kind %q", ErrInvalidValue, k)
			}
			s.Kind = ShapeKind(k)
		}
	case "x":
		if v, err = toFloat(value); err == nil {
			s.translate(v-s.X, 0)
		}
	case "y":
		if v, err = toFloat(value); err == nil {
			s.translate(0, v-s.Y)
		}
	case "width":
		s.Width, err = toFloat(value)
	case "height":
		s.Height, err = toFloat(value)
	case "radius":
		s.Radius, err = toFloat(value)
	case "startX", "startY", "endX", "endY":
		if v, err = toFloat(value); err != nil {
			break
		}
		switch key {
		case "startX":
			s.StartX = v
		case "startY":
			s.StartY = v
		case "endX":
			s.EndX = v
		default:
			s.EndY = v
		}
		s.recenter()
	case "color":
		s.Color, err = toString(value)
	case "strokeColor":
		s.StrokeColor, err = toString(value)
	case "strokeWidth":
		s.StrokeWidth, err = toFloat(value)
	case "opacity":
		s.Opacity, err = toFloat(value)
	case "filled":
		s.Filled, err = toBool(value)
	default:
		return fmt.Errorf("%w: shape.%s", ErrUnknownKey, key)
	}
	return err
}

func (g *Glyph) set(key string, value any) error {
	var err error
	switch key {
	case "glyph":
		var v string
		if v, err = toString(value); err == nil {
			if v == "" {
				return fmt.Errorf("%w: empty glyph", ErrInvalidValue)
			}
			g.Glyph = v
		}
	case "x":
		g.X, err = toFloat(value)
	case "y":
		g.Y, err = toFloat(value)
	case "size":
		g.Size, err = toFloat(value)
	case "opacity":
		g.Opacity, err = toFloat(value)
	case "rotation":
		g.Rotation, err = toFloat(value)
	default:
		return fmt.Errorf("%w: glyph.%s", ErrUnknownKey, key)
	}
	return err
}

func (t *Text) set(key string, value any) error {
	var err error
	switch key {
	case "text":
		var v string
		if v, err = toString(value); err == nil {
			if v == "" {
				return ErrEmptyText
			}
			t.Text = v
		}
	case "x":
		t.X, err = toFloat(value)
	case "y":
		t.Y, err = toFloat(value)
	case "fontSize":
		t.FontSize, err = toFloat(value)
	case "fontFamily":
		t.FontFamily, err = toString(value)
	case "textColor":
		t.TextColor, err = toString(value)
	case "strokeColor":
		t.StrokeColor, err = toString(value)
	case "strokeWidth":
		t.StrokeWidth, err = toFloat(value)
	case "bold":
		t.Bold, err = toBool(value)
	case "italic":
		t.Italic, err = toBool(value)
	case "shadow":
		t.Shadow, err = toBool(value)
	case "align":
		var v string
		if v, err = toString(value); err == nil {
			switch Align(v) {
			case AlignLeft, AlignCenter, AlignRight:
				t.Align = Align(v)
			default:
				return fmt.Errorf("%w: align %q", ErrInvalidValue, v)
			}
		}
	case "rotation":
		t.Rotation, err = toFloat(value)
	case "opacity":
		t.Opacity, err = toFloat(value)
	default:
		return fmt.Errorf("%w: text.%s", ErrUnknownKey, key)
	}
	return err
}

func toFloat(v any) (float64, error) {
	f, err := parseFloat(v)
	if err == nil && !finite(f) {
		return 0, fmt.Errorf("%w: %v is not finite", ErrInvalidValue, f)
	}
	return f, err
}

func parseFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %T is not a number", ErrInvalidValue, v)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func toString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %T is not a string", ErrInvalidValue, v)
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		p, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, b)
		}
		return p, nil
	}
	return false, fmt.Errorf("%w: %T is not a boolean", ErrInvalidValue, v)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
