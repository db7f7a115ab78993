package models

import "sync"

// Palette is the default series palette
var Palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// ColorPicker hands out palette colors in first-asked order. A name keeps its
// color for the picker's lifetime.
type ColorPicker struct {
	palette  []string
	assigned map[string]string
	mutex    sync.Mutex
}

// NewColorPicker creates a picker over palette, or Palette when empty
func NewColorPicker(palette ...string) *ColorPicker {
	if len(palette) == 0 {
		palette = Palette
	}
	return &ColorPicker{
		palette:  palette,
		assigned: make(map[string]string),
	}
}

// Pick returns the color of name, assigning the next palette entry on first use
func (p *ColorPicker) Pick(name string) string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if c, ok := p.assigned[name]; ok {
		return c
	}
	c := p.palette[len(p.assigned)%len(p.palette)]
	p.assigned[name] = c
	return c
}
