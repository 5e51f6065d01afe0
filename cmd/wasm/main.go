//go:build js && wasm

package main

import (
	"encoding/json"
	"errors"
	"syscall/js"

	"github.com/memeshare/memeshare/backend-go/internal/asset"
	"github.com/memeshare/memeshare/backend-go/internal/document"
	"github.com/memeshare/memeshare/backend-go/internal/engine"
)

// maxImageSide caps decoded backgrounds so a huge photo cannot exhaust the
// wasm heap.
const maxImageSide = 4096

var eng *engine.Engine

func main() {
	eng = engine.New(engine.Options{
		OnSave:   hostCallback("onSave"),
		OnCancel: func() { hostCallback("onCancel")("") },
	})

	// Create the engine API object
	memeEditor := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	memeEditor.Set("requestImage", js.FuncOf(requestImage))
	memeEditor.Set("completeImage", js.FuncOf(completeImage))
	memeEditor.Set("failImage", js.FuncOf(failImage))
	memeEditor.Set("replaceState", js.FuncOf(replaceState))
	memeEditor.Set("dispatch", js.FuncOf(dispatch))
	memeEditor.Set("pointerDown", js.FuncOf(pointerDown))
	memeEditor.Set("pointerMove", js.FuncOf(pointerMove))
	memeEditor.Set("pointerUp", js.FuncOf(pointerUp))
	memeEditor.Set("doubleClick", js.FuncOf(doubleClick))
	memeEditor.Set("undo", js.FuncOf(undo))
	memeEditor.Set("redo", js.FuncOf(redo))
	memeEditor.Set("exportImage", js.FuncOf(exportImage))
	memeEditor.Set("save", js.FuncOf(save))
	memeEditor.Set("cancel", js.FuncOf(cancel))

	// --- Queries (frontend ← backend) ---
	memeEditor.Set("render", js.FuncOf(render))
	memeEditor.Set("getState", js.FuncOf(getState))
	memeEditor.Set("getSelection", js.FuncOf(getSelection))
	memeEditor.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	memeEditor.Set("getStatus", js.FuncOf(getStatus))
	memeEditor.Set("getHistory", js.FuncOf(getHistory))
	memeEditor.Set("getTool", js.FuncOf(getTool))
	memeEditor.Set("getStaged", js.FuncOf(getStaged))
	memeEditor.Set("getPresets", js.FuncOf(getPresets))
	memeEditor.Set("getFrames", js.FuncOf(getFrames))

	// Register on global scope
	js.Global().Set("memeEditor", memeEditor)

	// Signal that WASM is ready
	js.Global().Set("memeEditorWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// hostCallback returns a function calling memeEditorHost[name], if the host
// page defined one.
func hostCallback(name string) func(string) {
	return func(arg string) {
		host := js.Global().Get("memeEditorHost")
		if host.Type() != js.TypeObject {
			return
		}
		if fn := host.Get(name); fn.Type() == js.TypeFunction {
			fn.Invoke(arg)
		}
	}
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

var errMissingArgs = errors.New("missing arguments")

// --- Command Handlers ---

func requestImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail(errMissingArgs)
	}
	t := eng.RequestImage(args[0].String())
	return js.ValueOf(map[string]interface{}{"url": t.URL, "generation": float64(t.Generation)})
}

// completeImage(generation, url, Uint8Array)
func completeImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return fail(errMissingArgs)
	}
	t := ticket(args)
	data := make([]byte, args[2].Get("length").Int())
	js.CopyBytesToGo(data, args[2])

	img, decodeErr := asset.Decode(data, maxImageSide)
	if err := eng.CompleteLoad(t, img, decodeErr); err != nil {
		return fail(err)
	}
	return ok()
}

// failImage(generation, url, message)
func failImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return fail(errMissingArgs)
	}
	err := eng.CompleteLoad(ticket(args), nil, errors.New(args[2].String()))
	if errors.Is(err, engine.ErrStaleLoad) {
		return fail(err)
	}
	return ok()
}

func ticket(args []js.Value) engine.LoadTicket {
	return engine.LoadTicket{Generation: uint64(args[0].Float()), URL: args[1].String()}
}

func replaceState(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail(errMissingArgs)
	}
	var s document.State
	if err := json.Unmarshal([]byte(args[0].String()), &s); err != nil {
		return fail(err)
	}
	if err := eng.Replace(s); err != nil {
		return fail(err)
	}
	return ok()
}

func dispatch(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail(errMissingArgs)
	}
	var a engine.Action
	if err := json.Unmarshal([]byte(args[0].String()), &a); err != nil {
		return fail(err)
	}
	if err := eng.Dispatch(a); err != nil {
		return fail(err)
	}
	return ok()
}

// Pointer handlers take (clientX, clientY, left, top, width, height), the
// last four being the canvas element's bounding client rect.
func pointer(args []js.Value) (float64, float64, engine.ClientRect, bool) {
	if len(args) < 6 {
		return 0, 0, engine.ClientRect{}, false
	}
	rect := engine.ClientRect{
		Left:   args[2].Float(),
		Top:    args[3].Float(),
		Width:  args[4].Float(),
		Height: args[5].Float(),
	}
	return args[0].Float(), args[1].Float(), rect, true
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	x, y, rect, valid := pointer(args)
	if !valid {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.PointerDown(x, y, rect))
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if x, y, rect, valid := pointer(args); valid {
		eng.PointerMove(x, y, rect)
	}
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	eng.PointerUp()
	return nil
}

func doubleClick(this js.Value, args []js.Value) interface{} {
	x, y, rect, valid := pointer(args)
	if !valid {
		return fail(errMissingArgs)
	}
	idx, err := eng.DoubleClick(x, y, rect)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(map[string]interface{}{"index": idx})
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Redo())
}

func exportImage(this js.Value, args []js.Value) interface{} {
	quality := 0.0
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		quality = args[0].Float()
	}
	uri, err := eng.Export(quality)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(map[string]interface{}{"dataUri": uri})
}

func save(this js.Value, args []js.Value) interface{} {
	if _, err := eng.Save(); err != nil {
		return fail(err)
	}
	return ok()
}

func cancel(this js.Value, args []js.Value) interface{} {
	eng.Cancel()
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.StateJSON())
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(marshal(eng.Selection()))
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.SelectionBounds())
}

func getStatus(this js.Value, args []js.Value) interface{} {
	w, h := eng.Size()
	status := map[string]interface{}{"status": string(eng.Status()), "width": w, "height": h}
	if err := eng.LoadError(); err != nil {
		status["error"] = err.Error()
	}
	return js.ValueOf(status)
}

func getHistory(this js.Value, args []js.Value) interface{} {
	p, n := eng.HistoryInfo()
	return js.ValueOf(map[string]interface{}{
		"pointer": p,
		"length":  n,
		"canUndo": eng.CanUndo(),
		"canRedo": eng.CanRedo(),
	})
}

func getTool(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(string(eng.Tool()))
}

func getStaged(this js.Value, args []js.Value) interface{} {
	c := eng.Tool()
	if len(args) > 0 {
		c = document.Category(args[0].String())
	}
	return js.ValueOf(marshal(eng.Staged(c)))
}

func getPresets(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(marshal(eng.Presets()))
}

func getFrames(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Frames())
}

func marshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
