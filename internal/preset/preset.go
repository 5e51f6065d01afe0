// Package preset holds the catalogue of one-click edits: effect presets that
// replace the background effects, and text templates that add a layout of
// captions sized to the canvas.
package preset

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/memeshare/memeshare/backend-go/internal/document"
)

//go:embed presets.yaml
var defaultYAML []byte

// ErrUnknownPreset is returned by Apply for names not in the catalogue.
var ErrUnknownPreset = errors.New("unknown preset")

// minFontSize keeps template captions legible on small canvases.
const minFontSize = 16

// Effect overrides a subset of the default effects.
type Effect struct {
	Name       string   `yaml:"name" json:"name"`
	Label      string   `yaml:"label" json:"label"`
	Brightness *float64 `yaml:"brightness" json:"brightness,omitempty"`
	Contrast   *float64 `yaml:"contrast" json:"contrast,omitempty"`
	Blur       *float64 `yaml:"blur" json:"blur,omitempty"`
	Rotation   *float64 `yaml:"rotation" json:"rotation,omitempty"`
	FlipX      *bool    `yaml:"flipX" json:"flipX,omitempty"`
	FlipY      *bool    `yaml:"flipY" json:"flipY,omitempty"`
}

// Effects resolves the preset against the defaults.
func (p Effect) Effects() document.Effects {
	e := document.DefaultEffects()
	if p.Brightness != nil {
		e.Brightness = *p.Brightness
	}
	if p.Contrast != nil {
		e.Contrast = *p.Contrast
	}
	if p.Blur != nil {
		e.Blur = *p.Blur
	}
	if p.Rotation != nil {
		e.Rotation = *p.Rotation
	}
	if p.FlipX != nil {
		e.FlipX = *p.FlipX
	}
	if p.FlipY != nil {
		e.FlipY = *p.FlipY
	}
	return e
}

// Slot is one caption in a template. X, Y and Size are fractions of the
// canvas width, height and height respectively. Unset styling keeps the
// text defaults.
type Slot struct {
	Text   string  `yaml:"text" json:"text"`
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Size   float64 `yaml:"size" json:"size"`
	Color  string  `yaml:"color" json:"color,omitempty"`
	Stroke string  `yaml:"stroke" json:"stroke,omitempty"`
	Bold   *bool   `yaml:"bold" json:"bold,omitempty"`
	Font   string  `yaml:"font" json:"font,omitempty"`
}

type Template struct {
	Name  string `yaml:"name" json:"name"`
	Label string `yaml:"label" json:"label"`
	Texts []Slot `yaml:"texts" json:"texts"`
}

// Elements lays the template out on a w×h canvas.
func (t Template) Elements(w, h float64) []document.Element {
	out := make([]document.Element, 0, len(t.Texts))
	for _, s := range t.Texts {
		el := document.NewText(s.Text, s.X*w, s.Y*h)
		if s.Size > 0 {
			el.Text.FontSize = max(s.Size*h, minFontSize)
		}
		if s.Color != "" {
			el.Text.TextColor = s.Color
		}
		if s.Stroke != "" {
			el.Text.StrokeColor = s.Stroke
		}
		if s.Bold != nil {
			el.Text.Bold = *s.Bold
		}
		if s.Font != "" {
			el.Text.FontFamily = s.Font
		}
		out = append(out, el)
	}
	return out
}

// Catalog is an immutable set of presets addressed by name.
type Catalog struct {
	Effects   []Effect   `yaml:"effects" json:"effects"`
	Templates []Template `yaml:"templates" json:"templates"`

	effects   map[string]Effect
	templates map[string]Template
}

// Parse reads a YAML catalogue. Names must be unique across both lists.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	c.effects = make(map[string]Effect, len(c.Effects))
	c.templates = make(map[string]Template, len(c.Templates))
	seen := make(map[string]bool)
	for _, e := range c.Effects {
		if e.Name == "" || seen[e.Name] {
			return nil, fmt.Errorf("parse presets: missing or duplicate name %q", e.Name)
		}
		if err := e.Effects().Validate(); err != nil {
			return nil, fmt.Errorf("parse presets: effect %q: %w", e.Name, err)
		}
		seen[e.Name] = true
		c.effects[e.Name] = e
	}
	for _, t := range c.Templates {
		if t.Name == "" || seen[t.Name] {
			return nil, fmt.Errorf("parse presets: missing or duplicate name %q", t.Name)
		}
		for i, s := range t.Texts {
			if s.Text == "" {
				return nil, fmt.Errorf("parse presets: template %q slot %d: %w", t.Name, i, document.ErrEmptyText)
			}
		}
		seen[t.Name] = true
		c.templates[t.Name] = t
	}
	return &c, nil
}

// LoadFile reads a catalogue from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	return Parse(data)
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalogue.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultYAML)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Names lists every preset name in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.effects)+len(c.templates))
	for n := range c.effects {
		names = append(names, n)
	}
	for n := range c.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Apply returns s with the named preset applied for a w×h canvas. Effect
// presets replace the effects; templates append their captions.
func (c *Catalog) Apply(name string, s document.State, w, h float64) (document.State, error) {
	if p, ok := c.effects[name]; ok {
		return document.SetEffects(s, p.Effects()), nil
	}
	t, ok := c.templates[name]
	if !ok {
		return s, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	out := s
	for _, el := range t.Elements(w, h) {
		var err error
		if out, _, err = document.Add(out, el); err != nil {
			return s, err
		}
	}
	return out, nil
}
