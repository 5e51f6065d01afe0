package engine

import "github.com/memeshare/memeshare/backend-go/internal/document"

type dragState struct {
	active  bool
	target  document.Selection
	offsetX float64
	offsetY float64
	moved   bool
}

// PointerDown hit-tests the pointer position. On a hit the element is
// selected and a drag begins; on a miss the selection is cleared. It reports
// whether an element was hit.
func (e *Engine) PointerDown(clientX, clientY float64, rect ClientRect) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusReady {
		return false
	}
	x, y := ScreenToCanvas(clientX, clientY, e.width, e.height, rect)
	sel, ok := HitTest(e.state, x, y, e.measure)
	if !ok {
		e.drag = dragState{}
		e.selection = document.NoSelection(e.selection.Category)
		e.repaint()
		return false
	}

	el, _ := e.state.Get(sel.Category, sel.Index)
	px, py := el.Position()
	e.selection = sel
	e.drag = dragState{active: true, target: sel, offsetX: x - px, offsetY: y - py}
	e.repaint()
	return true
}

// PointerMove drags the grabbed element, keeping its anchor at least the
// padding away from every canvas edge. Drag frames are never history
// entries.
func (e *Engine) PointerMove(clientX, clientY float64, rect ClientRect) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.drag.active {
		return
	}
	x, y := ScreenToCanvas(clientX, clientY, e.width, e.height, rect)
	nx := clampAxis(x-e.drag.offsetX, e.padding, float64(e.width))
	ny := clampAxis(y-e.drag.offsetY, e.padding, float64(e.height))

	next, err := document.Move(e.state, e.drag.target.Category, e.drag.target.Index, nx, ny)
	if err != nil {
		e.drag = dragState{}
		return
	}
	e.drag.moved = true
	e.commit(next, false)
}

// PointerUp ends a drag. Under DragCoalesce a drag that moved its element
// becomes one history entry.
func (e *Engine) PointerUp() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.drag.active {
		return
	}
	moved := e.drag.moved
	e.drag = dragState{}
	if moved && e.dragPolicy == DragCoalesce {
		e.history.Push(e.state)
	}
}

// Dragging reports whether a drag is in progress.
func (e *Engine) Dragging() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drag.active
}

// DoubleClick adds an element of the active tool's category at the pointer
// when nothing is under it. A hit just selects the element. It returns the
// new element's index or -1.
func (e *Engine) DoubleClick(clientX, clientY float64, rect ClientRect) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusReady {
		return -1, ErrNotReady
	}
	x, y := ScreenToCanvas(clientX, clientY, e.width, e.height, rect)
	if sel, ok := HitTest(e.state, x, y, e.measure); ok {
		e.selection = sel
		e.repaint()
		return -1, nil
	}
	return e.add(e.fromStaged(e.tool, x, y))
}

// clampAxis limits v to [padding, size-padding]. On canvases narrower than
// twice the padding the centre is used.
func clampAxis(v, padding, size float64) float64 {
	lo, hi := padding, size-padding
	if hi < lo {
		return size / 2
	}
	return max(lo, min(hi, v))
}
