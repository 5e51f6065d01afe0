package document

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Category is one of the four overlay element kinds. Its rank fixes the base
// paint order: shapes at the back, text at the front.
type Category string

const (
	CategoryShape   Category = "shape"
	CategorySticker Category = "sticker"
	CategoryEmoji   Category = "emoji"
	CategoryText    Category = "text"
)

// Categories lists every category back to front.
var Categories = []Category{CategoryShape, CategorySticker, CategoryEmoji, CategoryText}

// Layer returns the category's paint rank, or -1 if the category is unknown.
func (c Category) Layer() int {
	switch c {
	case CategoryShape:
		return 0
	case CategorySticker:
		return 1
	case CategoryEmoji:
		return 2
	case CategoryText:
		return 3
	default:
		return -1
	}
}

// Valid reports whether c names a known category.
func (c Category) Valid() bool { return c.Layer() >= 0 }

type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapeArrow     ShapeKind = "arrow"
	ShapeLine      ShapeKind = "line"
)

func (k ShapeKind) Valid() bool {
	switch k {
	case ShapeRectangle, ShapeCircle, ShapeArrow, ShapeLine:
		return true
	}
	return false
}

// Segment reports whether the shape is drawn from start/end points.
func (k ShapeKind) Segment() bool { return k == ShapeArrow || k == ShapeLine }

type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// StrokeNone disables text outlines regardless of stroke width.
const StrokeNone = "none"

// Shape geometry depends on Kind: rectangles use X/Y/Width/Height, circles
// X/Y/Radius, arrows and lines StartX/StartY/EndX/EndY. X/Y is always the
// anchor (centre for rectangles and circles, midpoint for segments).
type Shape struct {
	Kind        ShapeKind `json:"kind"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width,omitempty"`
	Height      float64   `json:"height,omitempty"`
	Radius      float64   `json:"radius,omitempty"`
	StartX      float64   `json:"startX,omitempty"`
	StartY      float64   `json:"startY,omitempty"`
	EndX        float64   `json:"endX,omitempty"`
	EndY        float64   `json:"endY,omitempty"`
	Color       string    `json:"color"`
	StrokeColor string    `json:"strokeColor"`
	StrokeWidth float64   `json:"strokeWidth"`
	Opacity     float64   `json:"opacity"`
	Filled      bool      `json:"filled"`
}

// Glyph backs both stickers and emoji.
type Glyph struct {
	Glyph    string  `json:"glyph"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Size     float64 `json:"size"`
	Opacity  float64 `json:"opacity"`
	Rotation float64 `json:"rotation"`
}

type Text struct {
	Text        string  `json:"text"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	FontSize    float64 `json:"fontSize"`
	FontFamily  string  `json:"fontFamily"`
	TextColor   string  `json:"textColor"`
	StrokeColor string  `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"`
	Bold        bool    `json:"bold"`
	Italic      bool    `json:"italic"`
	Shadow      bool    `json:"shadow"`
	Align       Align   `json:"align"`
	Rotation    float64 `json:"rotation"`
	Opacity     float64 `json:"opacity"`
}

// Stroked reports whether the text outline should be painted.
func (t *Text) Stroked() bool {
	return t.StrokeWidth > 0 && t.StrokeColor != "" && t.StrokeColor != StrokeNone
}

// Element is a tagged union: exactly one of Shape, Glyph or Text is set,
// matching Category (Glyph for both stickers and emoji).
type Element struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Shape    *Shape   `json:"shape,omitempty"`
	Glyph    *Glyph   `json:"glyph,omitempty"`
	Text     *Text    `json:"text,omitempty"`
}

// Effects apply to the background layer only.
type Effects struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Blur       float64 `json:"blur"`
	Rotation   float64 `json:"rotation"`
	FlipX      bool    `json:"flipX"`
	FlipY      bool    `json:"flipY"`
}

// Upper bounds for effects. Blur is a gaussian sigma in pixels; the kernel
// grows with it.
const (
	MaxTone = 1000
	MaxBlur = 100
)

func DefaultEffects() Effects {
	return Effects{Brightness: 100, Contrast: 100}
}

// Validate rejects effects outside the ranges the filter pipeline accepts.
func (e Effects) Validate() error {
	for _, f := range []struct {
		name    string
		v, high float64
	}{
		{"brightness", e.Brightness, MaxTone},
		{"contrast", e.Contrast, MaxTone},
		{"blur", e.Blur, MaxBlur},
	} {
		if !finite(f.v) || f.v < 0 || f.v > f.high {
			return fmt.Errorf("%w: effects.%s %v outside [0, %v]", ErrInvalidValue, f.name, f.v, f.high)
		}
	}
	if !finite(e.Rotation) {
		return fmt.Errorf("%w: effects.rotation %v", ErrInvalidValue, e.Rotation)
	}
	return nil
}

// IsIdentity reports whether the effects leave the background untouched.
func (e Effects) IsIdentity() bool {
	return e == DefaultEffects()
}

// Selection addresses one element by category and index within that
// category. Index is -1 when nothing is selected.
type Selection struct {
	Category Category `json:"category"`
	Index    int      `json:"-"`
}

// NoSelection keeps the category but clears the index.
func NoSelection(c Category) Selection { return Selection{Category: c, Index: -1} }

func (s Selection) Empty() bool { return s.Index < 0 }

type selectionJSON struct {
	Category Category `json:"category"`
	Index    *int     `json:"index"`
}

func (s Selection) MarshalJSON() ([]byte, error) {
	out := selectionJSON{Category: s.Category}
	if !s.Empty() {
		idx := s.Index
		out.Index = &idx
	}
	return json.Marshal(out)
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	var in selectionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Category = in.Category
	s.Index = -1
	if in.Index != nil {
		s.Index = *in.Index
	}
	return nil
}

// State is the full editable content: every overlay element plus the
// background effects. Elements keep insertion order; within a category that
// order is the paint order.
type State struct {
	Elements []Element `json:"elements"`
	Effects  Effects   `json:"effects"`
}

func NewState() State {
	return State{Elements: []Element{}, Effects: DefaultEffects()}
}

// Clone returns a deep copy that shares no memory with s.
func (s State) Clone() State {
	out := State{Elements: make([]Element, len(s.Elements)), Effects: s.Effects}
	for i, el := range s.Elements {
		out.Elements[i] = el.Clone()
	}
	return out
}

// Count returns how many elements belong to c.
func (s State) Count(c Category) int {
	n := 0
	for _, el := range s.Elements {
		if el.Category == c {
			n++
		}
	}
	return n
}

// Of returns the elements of c in paint order. The returned elements share
// memory with s.
func (s State) Of(c Category) []Element {
	var out []Element
	for _, el := range s.Elements {
		if el.Category == c {
			out = append(out, el)
		}
	}
	return out
}

// Get returns the index-th element of category c.
func (s State) Get(c Category, index int) (Element, bool) {
	pos, ok := s.position(c, index)
	if !ok {
		return Element{}, false
	}
	return s.Elements[pos], true
}

// Lookup finds an element by ID and returns its category index.
func (s State) Lookup(id string) (Element, int, bool) {
	counts := make(map[Category]int, len(Categories))
	for _, el := range s.Elements {
		if el.ID == id {
			return el, counts[el.Category], true
		}
		counts[el.Category]++
	}
	return Element{}, -1, false
}

// PaintOrder returns the elements back to front: stable-sorted by category
// layer so every shape precedes every sticker, every sticker every emoji and
// every emoji every text, whatever order they were added in.
func (s State) PaintOrder() []Element {
	out := make([]Element, len(s.Elements))
	copy(out, s.Elements)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Category.Layer() < out[j].Category.Layer()
	})
	return out
}

// position maps a category index to the index in s.Elements.
func (s State) position(c Category, index int) (int, bool) {
	if index < 0 {
		return -1, false
	}
	n := 0
	for i, el := range s.Elements {
		if el.Category != c {
			continue
		}
		if n == index {
			return i, true
		}
		n++
	}
	return -1, false
}

// Equal reports deep equality of two states.
func (s State) Equal(o State) bool {
	return s.compare(o, Element.Equal)
}

// SameContent compares states ignoring element IDs, so two replays of the
// same edits compare equal.
func (s State) SameContent(o State) bool {
	return s.compare(o, Element.SameContent)
}

func (s State) compare(o State, eq func(Element, Element) bool) bool {
	if s.Effects != o.Effects || len(s.Elements) != len(o.Elements) {
		return false
	}
	for i := range s.Elements {
		if !eq(s.Elements[i], o.Elements[i]) {
			return false
		}
	}
	return true
}
