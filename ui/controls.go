package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph/sph"
)

// Action is a request raised by the controls panel for the current frame.
type Action int

const (
	ActionNone Action = iota
	ActionStart
	ActionReset
)

// sliderSpec binds one fluid parameter to a slider.
type sliderSpec struct {
	Label  string
	Min    float32
	Max    float32
	Format string
	Field  func(p *sph.Params) *float32
}

var fluidSliders = []sliderSpec{
	{"Gas constant", 0.1, 10, "%.2f", func(p *sph.Params) *float32 { return &p.GasConstant }},
	{"Viscosity", 0, 5, "%.2f", func(p *sph.Params) *float32 { return &p.Viscosity }},
	{"Rest density", 200, 2000, "%.0f", func(p *sph.Params) *float32 { return &p.RestDensity }},
	{"Mass", 0.005, 0.1, "%.3f", func(p *sph.Params) *float32 { return &p.Mass }},
	{"Radius h", 0.05, 0.4, "%.3f", func(p *sph.Params) *float32 { return &p.H }},
	{"Gravity", -30, 0, "%.1f", func(p *sph.Params) *float32 { return &p.Gravity }},
}

// ControlsPanel renders Start/Reset buttons and sliders for the fluid
// parameters. Slider edits are held as pending parameters and take effect
// on the next Reset.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32

	pending sph.Params
	applied sph.Params
}

// NewControlsPanel creates a new controls panel showing params.
func NewControlsPanel(x, y, width int32, params sph.Params) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		pending:  params,
		applied:  params,
	}
}

// Pending returns the parameters as currently set on the sliders.
func (c *ControlsPanel) Pending() sph.Params {
	return c.pending
}

// Dirty reports whether the sliders differ from the running parameters.
func (c *ControlsPanel) Dirty() bool {
	return c.pending != c.applied
}

// MarkApplied records p as the running parameters.
func (c *ControlsPanel) MarkApplied(p sph.Params) {
	c.applied = p
	c.pending = p
}

// Height returns the panel's pixel height.
func (c *ControlsPanel) Height() int32 {
	r := c.renderer
	return r.Theme.Padding*2 + 30 + 12 + int32(len(fluidSliders))*40 + r.Theme.LineHeight
}

// Draw renders the panel and returns the action requested this frame.
func (c *ControlsPanel) Draw(state sph.State) Action {
	r := c.renderer
	padding := r.Theme.Padding

	r.DrawPanel(c.x, c.y, c.width, c.Height())

	x := float32(c.x + padding)
	y := float32(c.y + padding)
	inner := float32(c.width - padding*2)
	btnW := (inner - 10) / 2

	action := ActionNone

	startText := "Start"
	if state == sph.StateRunning {
		startText = "Running"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: btnW, Height: 30}, startText) && state == sph.StateIdle {
		action = ActionStart
	}
	resetText := "Reset"
	if c.Dirty() {
		resetText = "Reset*"
	}
	if gui.Button(rl.Rectangle{X: x + btnW + 10, Y: y, Width: btnW, Height: 30}, resetText) {
		action = ActionReset
	}
	y += 42

	for _, s := range fluidSliders {
		v := s.Field(&c.pending)
		rl.DrawText(s.Label, int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
		y += 14
		*v = gui.SliderBar(
			rl.Rectangle{X: x, Y: y, Width: inner - 60, Height: 18},
			"", "",
			*v, s.Min, s.Max,
		)
		rl.DrawText(fmt.Sprintf(s.Format, *v), int32(x+inner-52), int32(y+2), r.Theme.FontSize, r.Theme.ValueColor)
		y += 26
	}

	if c.Dirty() {
		rl.DrawText("Changes apply on Reset", int32(x), int32(y), r.Theme.FontSize, r.Theme.SectionHeader)
	}

	return action
}

// KeyBindingsPanel lists the overlay toggles and their keys.
type KeyBindingsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewKeyBindingsPanel creates a new key bindings panel.
func NewKeyBindingsPanel(x, y, width int32) *KeyBindingsPanel {
	return &KeyBindingsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (k *KeyBindingsPanel) SetPosition(x, y int32) {
	k.x = x
	k.y = y
}

// Draw renders the overlay list.
func (k *KeyBindingsPanel) Draw(overlays *OverlayRegistry) {
	r := k.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight

	categories := overlays.Categories()
	totalItems := 0
	for _, cat := range categories {
		totalItems += len(overlays.ByCategory(cat)) + 1
	}
	panelHeight := int32(totalItems)*lineHeight + padding*3 + lineHeight

	r.DrawPanel(k.x, k.y, k.width, panelHeight)

	y := k.y + padding
	rl.DrawText("Overlays", k.x+padding, y, 16, rl.White)
	y += lineHeight + 4

	for _, category := range categories {
		rl.DrawText(categoryLabel(category), k.x+padding, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
		y += lineHeight

		for _, desc := range overlays.ByCategory(category) {
			k.drawToggle(k.x+padding, y, desc, overlays.IsEnabled(desc.ID), k.width-padding*2)
			y += lineHeight
		}
		y += 4
	}
}

func (k *KeyBindingsPanel) drawToggle(x, y int32, desc OverlayDescriptor, enabled bool, width int32) {
	r := k.renderer

	statusColor := rl.Color{R: 80, G: 80, B: 80, A: 255}
	nameColor := r.Theme.LabelColor
	if enabled {
		statusColor = rl.Color{R: 100, G: 200, B: 100, A: 255}
		nameColor = rl.White
	}
	rl.DrawRectangle(x, y+2, 8, 8, statusColor)
	rl.DrawText(desc.Name, x+14, y, r.Theme.FontSize, nameColor)

	if desc.KeyLabel != "" {
		keyText := fmt.Sprintf("[%s]", desc.KeyLabel)
		keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
		rl.DrawText(keyText, x+width-keyWidth, y, r.Theme.FontSize, rl.Color{R: 150, G: 150, B: 150, A: 255})
	}
}

func categoryLabel(cat string) string {
	switch cat {
	case "scene":
		return "Scene"
	case "panels":
		return "Panels"
	default:
		return cat
	}
}
