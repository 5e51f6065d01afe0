package render

import (
	_ "embed"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// emojiOTF backs stickers and emoji, which the Go fonts do not cover.
//
//go:embed emoji/EmojiOne.otf
var emojiOTF []byte

var emojiFont = sync.OnceValue(func() *opentype.Font {
	f, err := opentype.Parse(emojiOTF)
	if err != nil {
		slog.Error("parse emoji font", "error", err)
		return nil
	}
	return f
})

// Browser font families are approximated by the Go fonts: monospace families
// map to Go Mono, everything else to Go sans.
var monoFamilies = []string{"mono", "courier", "consolas", "menlo"}

// maxFaceSize caps the pixel size of rasterised faces. Glyph masks are
// allocated per glyph at full size.
const maxFaceSize = 2048

type faceKey struct {
	mono, bold, italic bool
	size               float64
}

var fonts = struct {
	mu     sync.Mutex
	parsed map[faceKey]*opentype.Font
	faces  map[faceKey]font.Face
}{
	parsed: make(map[faceKey]*opentype.Font),
	faces:  make(map[faceKey]font.Face),
}

// NewFace returns a new face for f. Runes the Go font lacks are drawn from
// the emoji font. Faces are not safe for concurrent use, so each Raster
// keeps its own; the parsed fonts behind them are shared.
func NewFace(f Font) (font.Face, error) {
	key := keyFor(f)
	fontKey := faceKey{mono: key.mono, bold: key.bold, italic: key.italic}

	fonts.mu.Lock()
	parsed, ok := fonts.parsed[fontKey]
	if !ok {
		var err error
		parsed, err = opentype.Parse(ttf(fontKey))
		if err != nil {
			fonts.mu.Unlock()
			return nil, fmt.Errorf("parse font: %w", err)
		}
		fonts.parsed[fontKey] = parsed
	}
	fonts.mu.Unlock()

	opts := &opentype.FaceOptions{Size: key.size, DPI: 72, Hinting: font.HintingFull}
	face, err := opentype.NewFace(parsed, opts)
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	fb := &fallbackFace{primary: face, primaryFont: parsed}
	if ef := emojiFont(); ef != nil {
		if fb.emoji, err = opentype.NewFace(ef, opts); err != nil {
			return nil, fmt.Errorf("new emoji face: %w", err)
		}
		fb.emojiFont = ef
	}
	return fb, nil
}

// fallbackFace picks, per rune, the first font that has a glyph for it.
// Variation selectors and joiners neither font maps are dropped instead of
// drawn as boxes.
type fallbackFace struct {
	primary, emoji         font.Face
	primaryFont, emojiFont *sfnt.Font
	buf                    sfnt.Buffer
}

func (f *fallbackFace) pick(r rune) font.Face {
	if covers(f.primaryFont, &f.buf, r) {
		return f.primary
	}
	if f.emoji != nil && covers(f.emojiFont, &f.buf, r) {
		return f.emoji
	}
	if ignorable(r) {
		return nil
	}
	return f.primary
}

func covers(fnt *sfnt.Font, buf *sfnt.Buffer, r rune) bool {
	i, err := fnt.GlyphIndex(buf, r)
	return err == nil && i != 0
}

func ignorable(r rune) bool {
	switch {
	case r == 0x200D, r >= 0xFE00 && r <= 0xFE0F, r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	}
	return false
}

func (f *fallbackFace) Close() error {
	if f.emoji != nil {
		f.emoji.Close()
	}
	return f.primary.Close()
}

func (f *fallbackFace) Glyph(dot fixed.Point26_6, r rune) (image.Rectangle, image.Image, image.Point, fixed.Int26_6, bool) {
	face := f.pick(r)
	if face == nil {
		return image.Rectangle{}, nil, image.Point{}, 0, false
	}
	return face.Glyph(dot, r)
}

func (f *fallbackFace) GlyphBounds(r rune) (fixed.Rectangle26_6, fixed.Int26_6, bool) {
	face := f.pick(r)
	if face == nil {
		return fixed.Rectangle26_6{}, 0, false
	}
	return face.GlyphBounds(r)
}

func (f *fallbackFace) GlyphAdvance(r rune) (fixed.Int26_6, bool) {
	face := f.pick(r)
	if face == nil {
		return 0, false
	}
	return face.GlyphAdvance(r)
}

func (f *fallbackFace) Kern(r0, r1 rune) fixed.Int26_6 {
	a, b := f.pick(r0), f.pick(r1)
	if a == nil || a != b {
		return 0
	}
	return a.Kern(r0, r1)
}

func (f *fallbackFace) Metrics() font.Metrics { return f.primary.Metrics() }

// Measure returns the advance width of text set in f.
func Measure(text string, f Font) float64 {
	key := keyFor(f)

	fonts.mu.Lock()
	face, ok := fonts.faces[key]
	fonts.mu.Unlock()
	if !ok {
		var err error
		if face, err = NewFace(f); err != nil {
			// Rough fallback: average advance is about 0.6em.
			return float64(len([]rune(text))) * f.Size * 0.6
		}
	}

	fonts.mu.Lock()
	defer fonts.mu.Unlock()
	fonts.faces[key] = face
	return float64(font.MeasureString(face, text)) / 64
}

func keyFor(f Font) faceKey {
	return faceKey{
		mono:   isMono(f.Family),
		bold:   f.Bold,
		italic: f.Italic,
		size:   min(max(f.Size, 1), maxFaceSize),
	}
}

func isMono(family string) bool {
	family = strings.ToLower(family)
	for _, m := range monoFamilies {
		if strings.Contains(family, m) {
			return true
		}
	}
	return false
}

func ttf(k faceKey) []byte {
	switch {
	case k.mono && k.bold && k.italic:
		return gomonobolditalic.TTF
	case k.mono && k.bold:
		return gomonobold.TTF
	case k.mono && k.italic:
		return gomonoitalic.TTF
	case k.mono:
		return gomono.TTF
	case k.bold && k.italic:
		return gobolditalic.TTF
	case k.bold:
		return gobold.TTF
	case k.italic:
		return goitalic.TTF
	default:
		return goregular.TTF
	}
}
