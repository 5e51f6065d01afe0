package engine

import "github.com/memeshare/memeshare/backend-go/internal/document"

// DefaultHistoryLimit bounds how many snapshots are retained.
const DefaultHistoryLimit = 100

// History is a snapshot-based undo stack. pointer indexes the active
// snapshot; -1 means nothing has been pushed yet.
type History struct {
	snapshots []document.State
	pointer   int
	limit     int
}

// NewHistory creates an empty history. A limit <= 0 keeps every snapshot.
func NewHistory(limit int) *History {
	return &History{pointer: -1, limit: limit}
}

// Push discards every snapshot after the pointer, appends a deep copy of s
// and makes it active. When the limit is exceeded the oldest snapshot is
// dropped.
func (h *History) Push(s document.State) {
	h.snapshots = append(h.snapshots[:h.pointer+1], s.Clone())
	if h.limit > 0 && len(h.snapshots) > h.limit {
		drop := len(h.snapshots) - h.limit
		h.snapshots = append([]document.State(nil), h.snapshots[drop:]...)
	}
	h.pointer = len(h.snapshots) - 1
}

// Undo steps back one snapshot and returns a copy of it. At pointer <= 0 it
// is a no-op and reports false.
func (h *History) Undo() (document.State, bool) {
	if h.pointer <= 0 {
		return document.State{}, false
	}
	h.pointer--
	return h.snapshots[h.pointer].Clone(), true
}

// Redo steps forward one snapshot. At the tail it is a no-op.
func (h *History) Redo() (document.State, bool) {
	if h.pointer >= len(h.snapshots)-1 {
		return document.State{}, false
	}
	h.pointer++
	return h.snapshots[h.pointer].Clone(), true
}

func (h *History) CanUndo() bool { return h.pointer > 0 }
func (h *History) CanRedo() bool { return h.pointer < len(h.snapshots)-1 }
func (h *History) Pointer() int  { return h.pointer }
func (h *History) Len() int      { return len(h.snapshots) }

// Reset drops every snapshot.
func (h *History) Reset() {
	h.snapshots = nil
	h.pointer = -1
}
