package render

import (
	"image"
	"image/color"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{in: "#fff", want: color.NRGBA{255, 255, 255, 255}},
		{in: "#FF0000", want: color.NRGBA{255, 0, 0, 255}},
		{in: "#00ff0080", want: color.NRGBA{0, 255, 0, 128}},
		{in: "rgba(0,0,0,0.5)", want: color.NRGBA{0, 0, 0, 128}},
		{in: "rgb(10, 20, 30)", want: color.NRGBA{10, 20, 30, 255}},
		{in: "white", want: color.NRGBA{255, 255, 255, 255}},
		{in: "none", want: color.NRGBA{}},
		{in: "#12", wantErr: true},
		{in: "chartreuse-ish", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRasterFillAndAlpha(t *testing.T) {
	r := NewRaster(40, 40)
	r.Clear()
	r.Save()
	r.SetAlpha(0.5)
	r.FillPath(NewPath().Rect(0, 0, 20, 20), "#ff0000")
	r.Restore()
	r.FillPath(NewPath().Rect(20, 20, 20, 20), "#0000ff")

	img := r.Image()
	if _, _, _, a := img.At(10, 10).RGBA(); a>>8 < 120 || a>>8 > 135 {
		t.Errorf("half-alpha fill alpha = %d", a>>8)
	}
	if _, _, b, a := img.At(30, 30).RGBA(); b>>8 != 255 || a>>8 != 255 {
		t.Errorf("opaque fill = %v", img.At(30, 30))
	}
	if _, _, _, a := img.At(30, 5).RGBA(); a != 0 {
		t.Errorf("untouched pixel alpha = %d, want 0", a)
	}
}

func TestRasterDrawImageScalesToTarget(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	r := NewRaster(20, 20)
	r.Clear()
	r.DrawImage(Bitmap{Image: src}, 0, 0, 20, 20)

	if _, _, _, a := r.Image().At(15, 15).RGBA(); a>>8 != 255 {
		t.Errorf("scaled image does not cover target, alpha = %d", a>>8)
	}
}

func TestRasterMeasureText(t *testing.T) {
	r := NewRaster(10, 10)
	f := Font{Family: "Impact", Size: 40}
	short, long := r.MeasureText("HI", f), r.MeasureText("HELLO THERE", f)
	if short <= 0 || long <= short {
		t.Errorf("measure short=%v long=%v", short, long)
	}
	if mono := Measure("iiii", Font{Family: "Courier New", Size: 40}); mono <= Measure("iiii", f) {
		t.Errorf("monospace i should be wider than proportional i")
	}
}

func paintedPixels(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				n++
			}
		}
	}
	return n
}

func TestRasterDrawsEmojiGlyphs(t *testing.T) {
	for _, glyph := range []string{"A", "⭐", "😂", "🔥", "❤️"} {
		t.Run(glyph, func(t *testing.T) {
			r := NewRaster(100, 100)
			r.Clear()
			r.DrawGlyphs(Glyphs{
				Text:  glyph,
				X:     50,
				Y:     50,
				Font:  Font{Family: "sans-serif", Size: 64},
				Align: AlignCenter,
				Fill:  "#000000",
			})
			if n := paintedPixels(r.Image()); n < 100 {
				t.Errorf("%q painted %d pixels", glyph, n)
			}
		})
	}
}

func TestMeasureEmojiHasWidth(t *testing.T) {
	f := Font{Family: "sans-serif", Size: 64}
	if w := Measure("😂", f); w < 32 {
		t.Errorf("emoji advance = %v, want about one em", w)
	}
	if a, b := Measure("😂", f), Measure("😂️", f); a != b {
		t.Errorf("variation selector changed width: %v vs %v", a, b)
	}
}

func TestRasterCapsFaceSize(t *testing.T) {
	r := NewRaster(50, 50)
	r.Clear()
	r.DrawGlyphs(Glyphs{Text: "█", X: 25, Y: 25, Font: Font{Size: 1e9}, Align: AlignCenter, Fill: "#000"})
	if n := paintedPixels(r.Image()); n == 0 {
		t.Error("oversized glyph painted nothing")
	}
}

func TestGlyphLayerOrder(t *testing.T) {
	tests := []struct {
		name string
		g    Glyphs
		want []string
	}{
		{
			name: "shadow stroke fill",
			g:    Glyphs{Fill: "#fff", Stroke: "#000", StrokeWidth: 2, Shadow: true},
			want: append(append([]string{ShadowColor}, repeat("#000", outlineSteps)...), "#fff"),
		},
		{
			name: "none stroke",
			g:    Glyphs{Fill: "#fff", Stroke: "none", StrokeWidth: 4},
			want: []string{"#fff"},
		},
		{
			name: "zero width",
			g:    Glyphs{Fill: "#fff", Stroke: "#000", StrokeWidth: 0, Shadow: true},
			want: []string{ShadowColor, "#fff"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layers := tt.g.layers()
			if len(layers) != len(tt.want) {
				t.Fatalf("layers = %d, want %d", len(layers), len(tt.want))
			}
			for i, l := range layers {
				if l.color != tt.want[i] {
					t.Errorf("layer %d = %s, want %s", i, l.color, tt.want[i])
				}
			}
			last := layers[len(layers)-1]
			if last.dx != 0 || last.dy != 0 {
				t.Errorf("fill offset = %v,%v", last.dx, last.dy)
			}
			if tt.g.Shadow && (layers[0].dx != ShadowOffset || layers[0].dy != ShadowOffset) {
				t.Errorf("shadow offset = %v,%v", layers[0].dx, layers[0].dy)
			}
		})
	}
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestRasterFillOverStroke(t *testing.T) {
	draw := func(stroke string) image.Image {
		r := NewRaster(100, 100)
		r.Clear()
		r.DrawGlyphs(Glyphs{
			Text:        "█",
			X:           50,
			Y:           50,
			Font:        Font{Family: "sans-serif", Size: 40},
			Align:       AlignCenter,
			Fill:        "#0000ff",
			Stroke:      stroke,
			StrokeWidth: 6,
		})
		return r.Image()
	}
	red := func(img image.Image) int {
		n := 0
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if r, _, bl, a := img.At(x, y).RGBA(); a>>8 > 200 && r>>8 > 200 && bl>>8 < 50 {
					n++
				}
			}
		}
		return n
	}

	img := draw("#ff0000")
	if r, _, b, _ := img.At(50, 50).RGBA(); b>>8 != 255 || r>>8 != 0 {
		t.Errorf("centre = %v, want fill on top", img.At(50, 50))
	}
	if red(img) == 0 {
		t.Error("outline painted nothing")
	}
	if n := red(draw("none")); n != 0 {
		t.Errorf("none stroke painted %d pixels", n)
	}
}
