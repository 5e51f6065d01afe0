package engine

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/memeshare/memeshare/backend-go/internal/document"
	"github.com/memeshare/memeshare/backend-go/internal/render"
)

// DataURIPrefix starts every exported image.
const DataURIPrefix = "data:image/jpeg;base64,"

// Composite paints the current state without selection overlays onto a
// fresh raster and returns the pixels.
func (e *Engine) Composite() (image.Image, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.composite()
}

func (e *Engine) composite() (image.Image, error) {
	if e.status != StatusReady || e.width <= 0 || e.height <= 0 {
		return nil, ErrNotReady
	}
	r := render.NewRaster(e.width, e.height)
	Paint(r, e.scene(document.NoSelection(e.selection.Category)))
	return r.Image(), nil
}

// EncodeJPEG encodes the composited image as JPEG. quality is in (0, 1];
// anything else falls back to the engine's configured quality.
func (e *Engine) EncodeJPEG(quality float64) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	img, err := e.composite()
	if err != nil {
		return nil, err
	}
	if quality <= 0 || quality > 1 || math.IsNaN(quality) {
		quality = e.quality
	}
	var buf bytes.Buffer
	q := int(math.Round(quality * 100))
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Export flattens the scene to a JPEG data URI.
func (e *Engine) Export(quality float64) (string, error) {
	data, err := e.EncodeJPEG(quality)
	if err != nil {
		return "", err
	}
	return DataURIPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// Save exports at the configured quality and hands the result to the host's
// save callback.
func (e *Engine) Save() (string, error) {
	uri, err := e.Export(0)
	if err != nil {
		return "", err
	}
	if e.onSave != nil {
		e.onSave(uri)
	}
	return uri, nil
}

// Cancel tells the host the user abandoned the edit.
func (e *Engine) Cancel() {
	if e.onCancel != nil {
		e.onCancel()
	}
}
