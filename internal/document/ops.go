package document

import (
	"fmt"

	"github.com/memeshare/memeshare/backend-go/internal/typeid"
)

// DuplicateOffset is how far a duplicate is shifted from its source.
const DuplicateOffset = 20

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Reducers below never mutate their input state; each returns a fresh State.

// Add appends el as the topmost element of its category and returns the new
// category index.
func Add(s State, el Element) (State, int, error) {
	if err := el.Validate(); err != nil {
		return s, -1, err
	}
	el = el.Clone()
	if el.Shape != nil {
		el.Shape.recenter()
	}
	if el.ID == "" {
		el.ID = typeid.NewElementID()
	}
	out := s.Clone()
	out.Elements = append(out.Elements, el)
	return out, out.Count(el.Category) - 1, nil
}

// Update replaces one property of the index-th element of c. An index that
// does not address an element is a silent no-op.
func Update(s State, c Category, index int, key string, value any) (State, error) {
	pos, ok := s.position(c, index)
	if !ok {
		return s, nil
	}
	out := s.Clone()
	if err := out.Elements[pos].Set(key, value); err != nil {
		return s, err
	}
	return out, nil
}

// Duplicate clones the index-th element of c, shifts the clone by
// DuplicateOffset on both axes and appends it as the topmost of its category.
func Duplicate(s State, c Category, index int) (State, int, error) {
	src, ok := s.Get(c, index)
	if !ok {
		return s, -1, fmt.Errorf("%w: %s[%d]", ErrInvalidIndex, c, index)
	}
	dup := src.Clone()
	dup.ID = typeid.NewElementID()
	dup.Translate(DuplicateOffset, DuplicateOffset)
	out := s.Clone()
	out.Elements = append(out.Elements, dup)
	return out, out.Count(c) - 1, nil
}

func Delete(s State, c Category, index int) (State, error) {
	pos, ok := s.position(c, index)
	if !ok {
		return s, fmt.Errorf("%w: %s[%d]", ErrInvalidIndex, c, index)
	}
	out := s.Clone()
	out.Elements = append(out.Elements[:pos], out.Elements[pos+1:]...)
	return out, nil
}

// Reorder swaps the index-th element of c with its neighbour within the same
// category. Up moves it one step towards the front. At either end the state
// is returned unchanged. The element's resulting index is returned.
func Reorder(s State, c Category, index int, dir Direction) (State, int, error) {
	n := s.Count(c)
	if index < 0 || index >= n {
		return s, -1, fmt.Errorf("%w: %s[%d]", ErrInvalidIndex, c, index)
	}
	target := index
	switch dir {
	case DirectionUp:
		target = min(index+1, n-1)
	case DirectionDown:
		target = max(index-1, 0)
	default:
		return s, index, fmt.Errorf("%w: direction %q", ErrInvalidValue, dir)
	}
	if target == index {
		return s, index, nil
	}
	a, _ := s.position(c, index)
	b, _ := s.position(c, target)
	out := s.Clone()
	out.Elements[a], out.Elements[b] = out.Elements[b], out.Elements[a]
	return out, target, nil
}

// Move places the index-th element of c at (x, y).
func Move(s State, c Category, index int, x, y float64) (State, error) {
	pos, ok := s.position(c, index)
	if !ok {
		return s, fmt.Errorf("%w: %s[%d]", ErrInvalidIndex, c, index)
	}
	out := s.Clone()
	out.Elements[pos].MoveTo(x, y)
	return out, nil
}

func SetEffects(s State, e Effects) State {
	out := s.Clone()
	out.Effects = e
	return out
}

// UpdateEffect replaces one effects field by its JSON key.
func UpdateEffect(s State, key string, value any) (State, error) {
	e := s.Effects
	var err error
	switch key {
	case "brightness":
		e.Brightness, err = toFloat(value)
		e.Brightness = clamp(e.Brightness, 0, MaxTone)
	case "contrast":
		e.Contrast, err = toFloat(value)
		e.Contrast = clamp(e.Contrast, 0, MaxTone)
	case "blur":
		e.Blur, err = toFloat(value)
		e.Blur = clamp(e.Blur, 0, MaxBlur)
	case "rotation":
		e.Rotation, err = toFloat(value)
	case "flipX":
		e.FlipX, err = toBool(value)
	case "flipY":
		e.FlipY, err = toBool(value)
	default:
		return s, fmt.Errorf("%w: effects.%s", ErrUnknownKey, key)
	}
	if err != nil {
		return s, err
	}
	return SetEffects(s, e), nil
}
