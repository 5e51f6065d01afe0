package engine

import (
	"fmt"

	"github.com/memeshare/memeshare/backend-go/internal/document"
)

// ActionKind names a user action the engine can apply.
type ActionKind string

const (
	ActionAdd          ActionKind = "add"
	ActionUpdate       ActionKind = "update"
	ActionDuplicate    ActionKind = "duplicate"
	ActionDelete       ActionKind = "delete"
	ActionReorder      ActionKind = "reorder"
	ActionSelect       ActionKind = "select"
	ActionDeselect     ActionKind = "deselect"
	ActionTool         ActionKind = "tool"
	ActionEffect       ActionKind = "effect"
	ActionEffects      ActionKind = "effects"
	ActionResetEffects ActionKind = "resetEffects"
	ActionPreset       ActionKind = "preset"
	ActionUndo         ActionKind = "undo"
	ActionRedo         ActionKind = "redo"
)

// Action is the wire form of a user action, as sent by the browser bridge
// and live sessions. Index nil means "the current selection".
type Action struct {
	Kind      ActionKind         `json:"kind"`
	Category  document.Category  `json:"category,omitempty"`
	Index     *int               `json:"index,omitempty"`
	Key       string             `json:"key,omitempty"`
	Value     any                `json:"value,omitempty"`
	Props     map[string]any     `json:"props,omitempty"`
	Element   *document.Element  `json:"element,omitempty"`
	Direction document.Direction `json:"direction,omitempty"`
	Effects   *document.Effects  `json:"effects,omitempty"`
	Preset    string             `json:"preset,omitempty"`
}

// Dispatch applies a to the engine.
func (e *Engine) Dispatch(a Action) error {
	switch a.Kind {
	case ActionAdd:
		if a.Element != nil {
			_, err := e.AddElement(*a.Element)
			return err
		}
		_, err := e.Add(a.Category, a.Props)
		return err
	case ActionUpdate:
		if a.Index == nil && a.Category == "" {
			return e.UpdateSelected(a.Key, a.Value)
		}
		c, idx := e.target(a)
		return e.Update(c, idx, a.Key, a.Value)
	case ActionDuplicate:
		c, idx := e.target(a)
		_, err := e.Duplicate(c, idx)
		return err
	case ActionDelete:
		c, idx := e.target(a)
		return e.Delete(c, idx)
	case ActionReorder:
		c, idx := e.target(a)
		return e.Reorder(c, idx, a.Direction)
	case ActionSelect:
		c, idx := e.target(a)
		return e.Select(c, idx)
	case ActionDeselect:
		e.ClearSelection()
		return nil
	case ActionTool:
		return e.SetTool(a.Category)
	case ActionEffect:
		return e.UpdateEffect(a.Key, a.Value)
	case ActionEffects:
		if a.Effects == nil {
			return fmt.Errorf("%w: effects action without effects", document.ErrInvalidValue)
		}
		return e.SetEffects(*a.Effects)
	case ActionResetEffects:
		return e.ResetEffects()
	case ActionPreset:
		return e.ApplyPreset(a.Preset)
	case ActionUndo:
		e.Undo()
		return nil
	case ActionRedo:
		e.Redo()
		return nil
	default:
		return fmt.Errorf("unknown action kind: %q", a.Kind)
	}
}

// target resolves an action's category and index, falling back to the
// current selection for whichever is missing.
func (e *Engine) target(a Action) (document.Category, int) {
	sel := e.Selection()
	c := a.Category
	if c == "" {
		c = sel.Category
	}
	if a.Index != nil {
		return c, *a.Index
	}
	if c == sel.Category {
		return c, sel.Index
	}
	return c, -1
}
