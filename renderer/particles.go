// Package renderer draws the fluid with raylib.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sph/palette"
	"github.com/pthm-cable/sph/sph"
)

// ParticleRenderer draws one sphere per particle transform, coloured by
// density relative to the frame's density range.
type ParticleRenderer struct {
	ramp   palette.Ramp
	span   palette.Range
	rings  int32
	slices int32
}

// NewParticleRenderer creates a new particle renderer.
func NewParticleRenderer() *ParticleRenderer {
	return &ParticleRenderer{
		ramp:   palette.Density,
		rings:  6,
		slices: 8,
	}
}

// Draw renders all particles. transforms[i] belongs to particles[i]; must
// be called between rl.BeginMode3D and rl.EndMode3D.
func (r *ParticleRenderer) Draw(transforms []mgl32.Mat4, particles []sph.Particle) {
	r.span.Reset()
	for i := range particles {
		r.span.Add(particles[i].Density)
	}

	for i := range transforms {
		m := &transforms[i]

		// Translation column and uniform scale of Translate3D * Scale3D.
		center := rl.NewVector3(m[12], m[13], m[14])
		radius := m[0]

		var color rl.Color
		if i < len(particles) {
			cr, cg, cb := r.ramp.RGB255(palette.Normalize(particles[i].Density, r.span.Lo, r.span.Hi))
			color = rl.Color{R: cr, G: cg, B: cb, A: 255}
		} else {
			color = rl.SkyBlue
		}

		rl.DrawSphereEx(center, radius, r.rings, r.slices, color)
	}
}

// DensityRange returns the density span of the last drawn frame.
func (r *ParticleRenderer) DensityRange() (lo, hi float32) {
	return r.span.Lo, r.span.Hi
}
