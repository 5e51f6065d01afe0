package render

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/memeshare/memeshare/backend-go/internal/effects"
)

func TestRecorderClearStartsFrame(t *testing.T) {
	rec := NewRecorder(800, 600)
	rec.FillPath(NewPath().Rect(0, 0, 10, 10), "#fff")
	rec.Clear()
	rec.FillPath(NewPath().Rect(0, 0, 10, 10), "#000")

	cmds := rec.Commands()
	if len(cmds) != 2 {
		t.Fatalf("commands = %d, want 2", len(cmds))
	}
	if cmds[0].Op != "clear" || cmds[0].Width != 800 || cmds[0].Height != 600 {
		t.Errorf("first command = %+v", cmds[0])
	}
	if cmds[1].Fill != "#000" {
		t.Errorf("fill = %q, want #000", cmds[1].Fill)
	}
}

func TestRecorderSaveRestore(t *testing.T) {
	rec := NewRecorder(100, 100)

	rec.Save()
	rec.Translate(50, 50)
	rec.Rotate(math.Pi / 2)
	rec.SetAlpha(0.5)
	rec.SetDash(6, 4)
	rec.SetObject("el_1")
	rec.StrokePath(NewPath().MoveTo(0, 0).LineTo(10, 0), "#f00", 2)
	rec.Restore()
	rec.SetObject("")
	rec.FillPath(NewPath().Rect(0, 0, 1, 1), "#0f0")

	cmds := rec.Commands()
	inner, outer := cmds[0], cmds[1]

	if inner.ObjectID != "el_1" || inner.Opacity != 0.5 || len(inner.Dash) != 2 {
		t.Errorf("inner command state = %+v", inner)
	}
	var m Matrix2D
	copy(m[:], inner.Transform)
	x, y := m.TransformPoint(10, 0)
	if math.Abs(x-50) > 1e-9 || math.Abs(y-60) > 1e-9 {
		t.Errorf("transformed point = (%v, %v), want (50, 60)", x, y)
	}

	if outer.Transform != nil || outer.Opacity != 1 || outer.ObjectID != "" || outer.Dash != nil {
		t.Errorf("state leaked past Restore: %+v", outer)
	}
}

func TestRecorderRestoreOnEmptyStack(t *testing.T) {
	rec := NewRecorder(10, 10)
	rec.Restore()
	rec.Translate(1, 1)
	if rec.Matrix().IsIdentity() {
		t.Error("Translate after empty Restore had no effect")
	}
}

func TestRecorderImageCarriesFilter(t *testing.T) {
	rec := NewRecorder(10, 10)
	rec.SetFilter(effects.Filter{Brightness: 150, Contrast: 100})
	rec.DrawImage(Bitmap{Ref: "/assets/cat.png"}, -5, -5, 10, 10)

	cmd := rec.Commands()[0]
	if cmd.ImageRef != "/assets/cat.png" || cmd.Filter != "brightness(150%) contrast(100%)" {
		t.Errorf("image command = %+v", cmd)
	}
}

func TestRecorderJSON(t *testing.T) {
	rec := NewRecorder(10, 10)
	if got, _ := rec.JSON(); got != "[]" {
		t.Errorf("empty JSON = %s", got)
	}

	rec.DrawGlyphs(Glyphs{
		Text:  "HELLO",
		X:     5,
		Y:     5,
		Font:  Font{Family: "Impact", Size: 48, Bold: true, Italic: true},
		Align: AlignCenter,
		Fill:  "#fff",
	})
	got, err := rec.JSON()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"op":"text"`, `"font":"italic bold 48px Impact"`, `"baseline":"middle"`} {
		if !strings.Contains(got, want) {
			t.Errorf("JSON %s missing %s", got, want)
		}
	}
}

func TestPathCommandJSON(t *testing.T) {
	p := NewPath().MoveTo(1, 2).LineTo(3, 4).Close()
	data, err := json.Marshal(p.Commands)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[["M",1,2],["L",3,4],["Z"]]` {
		t.Errorf("marshal = %s", data)
	}

	var back []PathCommand
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if len(back) != 3 || back[1].Op != "L" || back[1].Args[1] != 4 {
		t.Errorf("unmarshal = %+v", back)
	}
}
