package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseColor understands the CSS colour forms the editor emits: #rgb,
// #rrggbb, #rrggbbaa, rgb(), rgba() and SVG named colours.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "" || s == "none" || s == "transparent":
		return color.NRGBA{}, nil
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb"):
		return parseFunc(s)
	}
	if c, ok := colornames.Map[s]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}
	return color.NRGBA{}, fmt.Errorf("unknown color %q", s)
}

// withAlpha scales the colour's alpha by a in 0..1.
func withAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = uint8(float64(c.A)*min(max(a, 0), 1) + 0.5)
	return c
}

func parseHex(h string) (color.NRGBA, error) {
	if len(h) == 3 || len(h) == 4 {
		var b strings.Builder
		for _, r := range h {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		h = b.String()
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", h, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func parseFunc(s string) (color.NRGBA, error) {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	var ch [4]float64
	ch[3] = 1
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		ch[i] = v
	}
	u8 := func(v float64) uint8 { return uint8(min(max(v, 0), 255) + 0.5) }
	return color.NRGBA{R: u8(ch[0]), G: u8(ch[1]), B: u8(ch[2]), A: u8(ch[3] * 255)}, nil
}
