package engine

import (
	"fmt"

	"github.com/memeshare/memeshare/backend-go/internal/document"
)

// Add creates an element of category c from the staged default for c,
// centred on the canvas, with props applied on top. The new element becomes
// the selection and its category index is returned. Edits that record
// history fail with ErrNotReady until the background has loaded.
func (e *Engine) Add(c document.Category, props map[string]any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !c.Valid() {
		return -1, fmt.Errorf("%w: %q", document.ErrInvalidCategory, c)
	}
	if e.status != StatusReady {
		return -1, ErrNotReady
	}
	el := e.fromStaged(c, float64(e.width)/2, float64(e.height)/2)
	for k, v := range props {
		if err := el.Set(k, v); err != nil {
			return -1, err
		}
	}
	return e.add(el)
}

// AddElement appends a fully specified element and selects it.
func (e *Engine) AddElement(el document.Element) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.add(el)
}

func (e *Engine) add(el document.Element) (int, error) {
	if e.status != StatusReady {
		return -1, ErrNotReady
	}
	next, idx, err := document.Add(e.state, el)
	if err != nil {
		return -1, err
	}
	e.selection = document.Selection{Category: el.Category, Index: idx}
	e.commit(next, true)
	return idx, nil
}

// fromStaged clones the staged default for c anchored at (x, y). The ID is
// cleared so document.Add assigns a fresh one.
func (e *Engine) fromStaged(c document.Category, x, y float64) document.Element {
	el := e.staged[c].Clone()
	el.ID = ""
	el.MoveTo(x, y)
	return el
}

// Replace installs a host-supplied state, as the export handler does before
// rendering. Elements are validated and missing IDs assigned. The selection
// is cleared and history restarts at s.
func (e *Engine) Replace(s document.State) error {
	if err := s.Effects.Validate(); err != nil {
		return err
	}
	next := document.NewState()
	next.Effects = s.Effects
	for _, el := range s.Elements {
		var err error
		if next, _, err = document.Add(next, el); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.drag = dragState{}
	e.state = next
	e.selection = document.NoSelection(e.selection.Category)
	e.history.Reset()
	if e.status == StatusReady {
		e.history.Push(e.state)
	}
	e.repaint()
	return nil
}

// Update sets one property of the index-th element of c. It is a silent
// no-op when index does not address an element. Property edits repaint but
// are not history entries.
func (e *Engine) Update(c document.Category, index int, key string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := document.Update(e.state, c, index, key, value)
	if err != nil {
		return err
	}
	e.commit(next, false)
	return nil
}

// UpdateSelected sets a property on the selected element. With nothing
// selected the value is staged on the default for the selection's category
// and applies to the next element added.
func (e *Engine) UpdateSelected(key string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.selection.Empty() {
		c := e.selection.Category
		staged := e.staged[c].Clone()
		if err := staged.Set(key, value); err != nil {
			return err
		}
		e.staged[c] = staged
		return nil
	}
	next, err := document.Update(e.state, e.selection.Category, e.selection.Index, key, value)
	if err != nil {
		return err
	}
	e.commit(next, false)
	return nil
}

// Staged returns a copy of the staged default for c.
func (e *Engine) Staged(c document.Category) document.Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.staged[c].Clone()
}

// Duplicate clones the index-th element of c offset by (+20, +20), appends
// it as the topmost of its category and selects it.
func (e *Engine) Duplicate(c document.Category, index int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusReady {
		return -1, ErrNotReady
	}
	next, idx, err := document.Duplicate(e.state, c, index)
	if err != nil {
		return -1, err
	}
	e.selection = document.Selection{Category: c, Index: idx}
	e.commit(next, true)
	return idx, nil
}

// Delete removes the index-th element of c and clears the selection index.
func (e *Engine) Delete(c document.Category, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusReady {
		return ErrNotReady
	}
	next, err := document.Delete(e.state, c, index)
	if err != nil {
		return err
	}
	e.selection = document.NoSelection(e.selection.Category)
	e.commit(next, true)
	return nil
}

// Reorder moves the index-th element of c one step within its category.
// The selection follows the element.
func (e *Engine) Reorder(c document.Category, index int, dir document.Direction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusReady {
		return ErrNotReady
	}
	next, idx, err := document.Reorder(e.state, c, index, dir)
	if err != nil {
		return err
	}
	if idx == index {
		return nil
	}
	if e.selection.Category == c && e.selection.Index == index {
		e.selection.Index = idx
	}
	e.commit(next, true)
	return nil
}

// Select makes the index-th element of c the selection.
func (e *Engine) Select(c document.Category, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.state.Get(c, index); !ok {
		return fmt.Errorf("%w: %s[%d]", document.ErrInvalidIndex, c, index)
	}
	e.selection = document.Selection{Category: c, Index: index}
	e.repaint()
	return nil
}

// ClearSelection drops the selection index, keeping its category.
func (e *Engine) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selection = document.NoSelection(e.selection.Category)
	e.repaint()
}

// SetTool makes c the active tool for double-click adds and clears the
// selection.
func (e *Engine) SetTool(c document.Category) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !c.Valid() {
		return fmt.Errorf("%w: %q", document.ErrInvalidCategory, c)
	}
	e.tool = c
	e.selection = document.NoSelection(c)
	e.repaint()
	return nil
}

// SetEffects replaces the background effects. Out-of-range values are
// rejected and leave the state untouched.
func (e *Engine) SetEffects(fx document.Effects) error {
	if err := fx.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusReady {
		return ErrNotReady
	}
	e.commit(document.SetEffects(e.state, fx), true)
	return nil
}

// UpdateEffect sets one background effect by key.
func (e *Engine) UpdateEffect(key string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusReady {
		return ErrNotReady
	}
	next, err := document.UpdateEffect(e.state, key, value)
	if err != nil {
		return err
	}
	e.commit(next, true)
	return nil
}

// ResetEffects restores the default effects.
func (e *Engine) ResetEffects() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusReady {
		return ErrNotReady
	}
	e.commit(document.SetEffects(e.state, document.DefaultEffects()), true)
	return nil
}

// ApplyPreset applies a named effect preset or text template as a single
// history entry.
func (e *Engine) ApplyPreset(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusReady {
		return ErrNotReady
	}
	next, err := e.presets.Apply(name, e.state, float64(e.width), float64(e.height))
	if err != nil {
		return err
	}
	e.commit(next, true)
	return nil
}

// Undo restores the previous snapshot. It is a no-op at the first snapshot.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.history.Undo()
	if !ok {
		return false
	}
	e.restore(s)
	return true
}

// Redo re-applies the next snapshot. It is a no-op at the tail.
func (e *Engine) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.history.Redo()
	if !ok {
		return false
	}
	e.restore(s)
	return true
}

func (e *Engine) restore(s document.State) {
	e.drag = dragState{}
	e.state = s
	e.validSelection()
	e.repaint()
}
