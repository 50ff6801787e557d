// Package termview renders the fluid as coloured glyphs in a terminal.
package termview

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/sph/camera"
	"github.com/pthm-cable/sph/palette"
	"github.com/pthm-cable/sph/sph"
	"github.com/pthm-cable/sph/telemetry"
)

// particleGlyph is drawn for every visible particle.
const particleGlyph = '●'

// Status is the text shown on the bottom row.
type Status struct {
	State   sph.State
	Tick    int64
	Stats   telemetry.WindowStats
	LastErr error
}

// View projects particles through an orbit camera onto a tcell screen.
// Terminal cells are about twice as tall as wide, so the camera viewport
// has twice as many rows as the screen.
type View struct {
	screen tcell.Screen
	cam    *camera.Camera
	ramp   palette.Ramp
	span   palette.Range

	width, height int
	depth         []float32
}

// New creates a view on an initialised screen.
func New(screen tcell.Screen, cam *camera.Camera) *View {
	v := &View{
		screen: screen,
		cam:    cam,
		ramp:   palette.Density,
	}
	v.Resize()
	return v
}

// Resize adopts the current screen size.
func (v *View) Resize() {
	v.width, v.height = v.screen.Size()
	rows := max(v.height-1, 1)
	v.cam.Resize(float32(v.width), float32(rows*2))
	if n := v.width * rows; cap(v.depth) < n {
		v.depth = make([]float32, n)
	} else {
		v.depth = v.depth[:n]
	}
}

// Camera returns the view camera.
func (v *View) Camera() *camera.Camera { return v.cam }

// Draw clears the screen, plots the particles nearest-first per cell and
// writes the status row. It does not call Show.
func (v *View) Draw(particles []sph.Particle, status Status) {
	v.screen.Clear()
	rows := v.height - 1

	v.span.Reset()
	for i := range particles {
		v.span.Add(particles[i].Density)
	}
	for i := range v.depth {
		v.depth[i] = math.MaxFloat32
	}

	eye := v.cam.Eye()
	for i := range particles {
		p := &particles[i]
		sx, sy, ok := v.cam.WorldToScreen(p.Position)
		if !ok {
			continue
		}
		col := int(sx)
		row := int(sy / 2)
		if col < 0 || col >= v.width || row < 0 || row >= rows {
			continue
		}
		d := p.Position.Sub(eye).LenSqr()
		idx := row*v.width + col
		if d >= v.depth[idx] {
			continue
		}
		v.depth[idx] = d

		r, g, b := v.ramp.RGB255(palette.Normalize(p.Density, v.span.Lo, v.span.Hi))
		style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
		v.screen.SetContent(col, row, particleGlyph, nil, style)
	}

	v.drawStatus(status)
}

func (v *View) drawStatus(s Status) {
	line := fmt.Sprintf(" %s | tick %d | rho %.0f (err %.3f) | KE %.3f | [s]tart [r]eset [q]uit",
		s.State, s.Tick, s.Stats.DensityMean, s.Stats.DensityError, s.Stats.KineticEnergy)
	style := tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
	if s.LastErr != nil {
		line = " " + s.LastErr.Error()
		style = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorRed)
	}
	row := v.height - 1
	col := 0
	for _, r := range line {
		if col >= v.width {
			break
		}
		v.screen.SetContent(col, row, r, nil, style)
		col++
	}
	for ; col < v.width; col++ {
		v.screen.SetContent(col, row, ' ', nil, style)
	}
}
