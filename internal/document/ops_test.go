package document

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestAddAppendsAsTopmostOfCategory(t *testing.T) {
	s := NewState()

	s, idx, err := Add(s, NewShape(ShapeRectangle, 400, 300))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx != 0 {
		t.Fatalf("index = %d, want 0", idx)
	}

	s, _, _ = Add(s, NewText("TOP", 10, 10))
	s, idx, _ = Add(s, NewShape(ShapeCircle, 5, 5))
	if idx != 1 {
		t.Fatalf("second shape index = %d, want 1", idx)
	}

	shapes := s.Of(CategoryShape)
	if len(shapes) != 2 {
		t.Fatalf("shapes = %d, want 2", len(shapes))
	}
	got := shapes[0].Shape
	if got.Width != 100 || got.Height != 60 || got.Opacity != 50 || got.X != 400 || got.Y != 300 {
		t.Errorf("rectangle defaults = %+v", *got)
	}
	if shapes[1].Shape.Kind != ShapeCircle {
		t.Errorf("topmost shape kind = %s, want circle", shapes[1].Shape.Kind)
	}
}

func TestAddRejectsEmptyText(t *testing.T) {
	_, _, err := Add(NewState(), NewText("", 0, 0))
	if !errors.Is(err, ErrEmptyText) {
		t.Fatalf("err = %v, want ErrEmptyText", err)
	}
}

func TestReducersDoNotMutateInput(t *testing.T) {
	base, _, _ := Add(NewState(), NewText("HELLO", 50, 50))
	before := base.Clone()

	if _, err := Update(base, CategoryText, 0, "text", "BYE"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Duplicate(base, CategoryText, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := Delete(base, CategoryText, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := Move(base, CategoryText, 0, 1, 1); err != nil {
		t.Fatal(err)
	}

	if !base.Equal(before) {
		t.Errorf("input state was mutated: %+v", base.Elements[0].Text)
	}
}

func TestUpdate(t *testing.T) {
	s, _, _ := Add(NewState(), NewText("HELLO", 50, 50))

	tests := []struct {
		name    string
		index   int
		key     string
		value   any
		wantErr error
		check   func(*testing.T, State)
	}{
		{
			name: "numeric from json", index: 0, key: "fontSize", value: json.Number("72"),
			check: func(t *testing.T, s State) {
				if s.Elements[0].Text.FontSize != 72 {
					t.Errorf("fontSize = %v", s.Elements[0].Text.FontSize)
				}
			},
		},
		{
			name: "numeric from string", index: 0, key: "rotation", value: "45",
			check: func(t *testing.T, s State) {
				if s.Elements[0].Text.Rotation != 45 {
					t.Errorf("rotation = %v", s.Elements[0].Text.Rotation)
				}
			},
		},
		{
			name: "bool", index: 0, key: "shadow", value: true,
			check: func(t *testing.T, s State) {
				if !s.Elements[0].Text.Shadow {
					t.Error("shadow not set")
				}
			},
		},
		{
			name: "invalid index is a no-op", index: 5, key: "text", value: "X",
			check: func(t *testing.T, got State) {
				if !got.Equal(s) {
					t.Error("state changed")
				}
			},
		},
		{
			name: "no selection is a no-op", index: -1, key: "text", value: "X",
			check: func(t *testing.T, got State) {
				if !got.Equal(s) {
					t.Error("state changed")
				}
			},
		},
		{name: "unknown key", index: 0, key: "radius", value: 3.0, wantErr: ErrUnknownKey},
		{name: "wrong type", index: 0, key: "bold", value: 3.0, wantErr: ErrInvalidValue},
		{name: "empty text", index: 0, key: "text", value: "", wantErr: ErrEmptyText},
		{name: "bad align", index: 0, key: "align", value: "justify", wantErr: ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Update(s, CategoryText, tt.index, tt.key, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			tt.check(t, got)
		})
	}
}

func TestDuplicateOffsetsClone(t *testing.T) {
	s, _, _ := Add(NewState(), NewSticker("🔥", 100, 100))
	s, _, _ = Add(s, NewSticker("💯", 300, 300))

	s, idx, err := Duplicate(s, CategorySticker, 0)
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if idx != 2 {
		t.Fatalf("clone index = %d, want 2", idx)
	}
	stickers := s.Of(CategorySticker)
	clone := stickers[2]
	if clone.Glyph.X != 120 || clone.Glyph.Y != 120 || clone.Glyph.Glyph != "🔥" {
		t.Errorf("clone = %+v", *clone.Glyph)
	}
	if clone.ID == stickers[0].ID {
		t.Error("clone shares source ID")
	}

	clone.Glyph.X = 999
	if s.Of(CategorySticker)[0].Glyph.X != 100 {
		t.Error("clone aliases source payload")
	}
}

func TestDuplicateSegmentMovesEndpoints(t *testing.T) {
	s, _, _ := Add(NewState(), NewShape(ShapeArrow, 200, 200))
	s, _, _ = Duplicate(s, CategoryShape, 0)

	src, dup := s.Of(CategoryShape)[0].Shape, s.Of(CategoryShape)[1].Shape
	if dup.StartX != src.StartX+20 || dup.EndY != src.EndY+20 {
		t.Errorf("segment not translated: src=%+v dup=%+v", *src, *dup)
	}
}

func TestDelete(t *testing.T) {
	s, _, _ := Add(NewState(), NewEmoji("😂", 1, 1))
	s, _, _ = Add(s, NewEmoji("😭", 2, 2))

	s, err := Delete(s, CategoryEmoji, 0)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	emoji := s.Of(CategoryEmoji)
	if len(emoji) != 1 || emoji[0].Glyph.Glyph != "😭" {
		t.Errorf("remaining = %+v", emoji)
	}

	if _, err := Delete(s, CategoryEmoji, 3); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("err = %v, want ErrInvalidIndex", err)
	}
}

func TestReorderStaysWithinCategory(t *testing.T) {
	s := NewState()
	s, _, _ = Add(s, NewText("A", 0, 0))
	s, _, _ = Add(s, NewShape(ShapeRectangle, 0, 0))
	s, _, _ = Add(s, NewText("B", 0, 0))
	s, _, _ = Add(s, NewText("C", 0, 0))

	s, idx, err := Reorder(s, CategoryText, 0, DirectionUp)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 1 {
		t.Errorf("new index = %d, want 1", idx)
	}
	order := ""
	for _, el := range s.Of(CategoryText) {
		order += el.Text.Text
	}
	if order != "BAC" {
		t.Errorf("text order = %s, want BAC", order)
	}

	// Clamped at the ends.
	same, idx, _ := Reorder(s, CategoryText, 2, DirectionUp)
	if idx != 2 || !same.Equal(s) {
		t.Error("reorder past the front should be a no-op")
	}
	same, idx, _ = Reorder(s, CategoryText, 0, DirectionDown)
	if idx != 0 || !same.Equal(s) {
		t.Error("reorder past the back should be a no-op")
	}

	// The lone shape can never rise above text.
	s, _, _ = Reorder(s, CategoryShape, 0, DirectionUp)
	paint := s.PaintOrder()
	if paint[0].Category != CategoryShape {
		t.Errorf("paint[0] = %s, want shape", paint[0].Category)
	}
}

func TestPaintOrderIsCategoryLayered(t *testing.T) {
	s := NewState()
	s, _, _ = Add(s, NewText("T1", 0, 0))
	s, _, _ = Add(s, NewEmoji("😂", 0, 0))
	s, _, _ = Add(s, NewSticker("⭐", 0, 0))
	s, _, _ = Add(s, NewShape(ShapeCircle, 0, 0))
	s, _, _ = Add(s, NewText("T2", 0, 0))
	s, _, _ = Add(s, NewShape(ShapeLine, 0, 0))

	paint := s.PaintOrder()
	for i := 1; i < len(paint); i++ {
		if paint[i-1].Category.Layer() > paint[i].Category.Layer() {
			t.Fatalf("%s painted after %s", paint[i-1].Category, paint[i].Category)
		}
	}
	if paint[4].Text.Text != "T1" || paint[5].Text.Text != "T2" {
		t.Error("within-category order not preserved")
	}
}

func TestUpdateEffect(t *testing.T) {
	s := NewState()
	s, err := UpdateEffect(s, "flipX", true)
	if err != nil {
		t.Fatal(err)
	}
	s, _ = UpdateEffect(s, "blur", -4.0)
	if !s.Effects.FlipX || s.Effects.Blur != 0 {
		t.Errorf("effects = %+v", s.Effects)
	}
	if _, err := UpdateEffect(s, "saturation", 3.0); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("err = %v, want ErrUnknownKey", err)
	}
}

func TestUpdateEffectBounds(t *testing.T) {
	tests := []struct {
		key   string
		value any
		check func(Effects) bool
	}{
		{"blur", 1e12, func(e Effects) bool { return e.Blur == MaxBlur }},
		{"brightness", 5000.0, func(e Effects) bool { return e.Brightness == MaxTone }},
		{"contrast", -20.0, func(e Effects) bool { return e.Contrast == 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			s, err := UpdateEffect(NewState(), tt.key, tt.value)
			if err != nil {
				t.Fatalf("UpdateEffect: %v", err)
			}
			if !tt.check(s.Effects) {
				t.Errorf("effects = %+v", s.Effects)
			}
			if err := s.Effects.Validate(); err != nil {
				t.Errorf("clamped effects fail Validate: %v", err)
			}
		})
	}

	if _, err := UpdateEffect(NewState(), "blur", "NaN"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("NaN blur err = %v, want ErrInvalidValue", err)
	}
}

func TestEffectsValidate(t *testing.T) {
	tests := []struct {
		name string
		fx   Effects
		ok   bool
	}{
		{"defaults", DefaultEffects(), true},
		{"deep fried", Effects{Brightness: 140, Contrast: 250, Rotation: 180}, true},
		{"huge blur", Effects{Brightness: 100, Contrast: 100, Blur: 1e12}, false},
		{"negative brightness", Effects{Brightness: -1, Contrast: 100}, false},
		{"infinite contrast", Effects{Brightness: 100, Contrast: math.Inf(1)}, false},
		{"nan rotation", Effects{Brightness: 100, Contrast: 100, Rotation: math.NaN()}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fx.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidValue) {
				t.Errorf("err = %v, want ErrInvalidValue", err)
			}
		})
	}
}

func TestSegmentAnchorFollowsEndpoints(t *testing.T) {
	s, _, _ := Add(NewState(), NewShape(ShapeArrow, 100, 100))

	s, err := Update(s, CategoryShape, 0, "x", 200.0)
	if err != nil {
		t.Fatal(err)
	}
	sh := s.Elements[0].Shape
	if sh.StartX != 140 || sh.EndX != 260 || sh.X != 200 {
		t.Fatalf("moving anchor left endpoints behind: %+v", *sh)
	}

	s, _ = Update(s, CategoryShape, 0, "endY", 160.0)
	sh = s.Elements[0].Shape
	if sh.X != 200 || sh.Y != 130 {
		t.Errorf("anchor = (%v, %v), want midpoint (200, 130)", sh.X, sh.Y)
	}

	stray := NewShape(ShapeLine, 0, 0)
	stray.Shape.X, stray.Shape.Y = 999, 999
	s, idx, _ := Add(s, stray)
	if got, _ := s.Get(CategoryShape, idx); got.Shape.X != 0 || got.Shape.Y != 0 {
		t.Errorf("added line anchor = (%v, %v), want its midpoint", got.Shape.X, got.Shape.Y)
	}
}

func TestSameContentIgnoresIDs(t *testing.T) {
	replay := func() State {
		s, _, _ := Add(NewState(), NewText("HELLO", 50, 50))
		s, _, _ = Duplicate(s, CategoryText, 0)
		s, _ = UpdateEffect(s, "blur", 3.0)
		return s
	}
	a, b := replay(), replay()
	if a.Equal(b) {
		t.Fatal("independent replays share element IDs")
	}
	if !a.SameContent(b) {
		t.Error("replays of the same edits differ in content")
	}
	b, _ = Move(b, CategoryText, 1, 0, 0)
	if a.SameContent(b) {
		t.Error("SameContent ignored a moved element")
	}
}

func TestSelectionJSON(t *testing.T) {
	data, _ := json.Marshal(NoSelection(CategoryText))
	if string(data) != `{"category":"text","index":null}` {
		t.Errorf("marshal = %s", data)
	}

	var sel Selection
	if err := json.Unmarshal([]byte(`{"category":"emoji","index":2}`), &sel); err != nil {
		t.Fatal(err)
	}
	if sel.Category != CategoryEmoji || sel.Index != 2 {
		t.Errorf("unmarshal = %+v", sel)
	}
}
