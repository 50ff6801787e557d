package sph

import "github.com/go-gl/mathgl/mgl32"

// Particle is one fluid sample. The engine reorders particles by Hash every
// tick; ID is stable across reorders.
type Particle struct {
	Position mgl32.Vec3
	Velocity mgl32.Vec3
	Force    mgl32.Vec3
	Density  float32
	Pressure float32
	Hash     uint32
	ID       uint32
}

// Transform returns the render matrix for a particle: translate to its
// position, then scale uniformly.
func Transform(p *Particle, scale float32) mgl32.Mat4 {
	return mgl32.Translate3D(p.Position[0], p.Position[1], p.Position[2]).
		Mul4(mgl32.Scale3D(scale, scale, scale))
}
