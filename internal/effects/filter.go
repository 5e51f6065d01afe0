// Package effects implements the background image filters: brightness,
// contrast and blur with CSS filter semantics, applied in that order.
package effects

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/memeshare/memeshare/backend-go/internal/document"
)

// Filter holds the pixel-level part of the background effects. Brightness
// and Contrast are percentages (100 = unchanged), Blur is a radius in pixels.
type Filter struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Blur       float64 `json:"blur"`
}

// None is the identity filter.
var None = Filter{Brightness: 100, Contrast: 100}

// FromEffects extracts the filter from the background effects.
func FromEffects(e document.Effects) Filter {
	return Filter{Brightness: e.Brightness, Contrast: e.Contrast, Blur: e.Blur}
}

func (f Filter) IsIdentity() bool {
	return f.Brightness == 100 && f.Contrast == 100 && f.Blur <= 0
}

// CSS returns the filter as a Canvas2D/CSS filter string, "none" for the
// identity filter.
func (f Filter) CSS() string {
	if f.IsIdentity() {
		return "none"
	}
	parts := []string{
		fmt.Sprintf("brightness(%g%%)", f.Brightness),
		fmt.Sprintf("contrast(%g%%)", f.Contrast),
	}
	if f.Blur > 0 {
		parts = append(parts, fmt.Sprintf("blur(%gpx)", f.Blur))
	}
	return strings.Join(parts, " ")
}

// Apply returns a filtered copy of img. The source is never modified.
func Apply(img image.Image, f Filter) *image.NRGBA {
	if f.IsIdentity() {
		return imaging.Clone(img)
	}
	out := imaging.Clone(img)
	if f.Brightness != 100 || f.Contrast != 100 {
		b := min(max(f.Brightness, 0), document.MaxTone)
		c := min(max(f.Contrast, 0), document.MaxTone)
		out = tone(out, b/100, c/100)
	}
	if f.Blur > 0 {
		// CSS blur radius is the gaussian standard deviation.
		out = imaging.Blur(out, min(f.Blur, document.MaxBlur))
	}
	return out
}

// tone applies CSS brightness(b) then contrast(c) to every colour channel
// in unit range. Each filter clamps its output before the next one runs.
func tone(img image.Image, b, c float64) *image.NRGBA {
	var lut [256]uint8
	for i := range lut {
		v := min(float64(i)/255*b, 1)
		v = (v-0.5)*c + 0.5
		lut[i] = uint8(min(max(v, 0), 1)*255 + 0.5)
	}
	return imaging.AdjustFunc(img, func(px color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[px.R], G: lut[px.G], B: lut[px.B], A: px.A}
	})
}
