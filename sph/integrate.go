package sph

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrNonFinite is returned when integration produces a NaN or infinite
// position or velocity.
var ErrNonFinite = errors.New("sph: particle state diverged")

// Boundary is the open-topped box particles are kept inside.
type Boundary struct {
	HalfWidth  float32 // walls at ±HalfWidth on x and z
	Elasticity float32 // fraction of normal velocity kept on bounce
	Epsilon    float32 // push-off past the reflected plane
}

// DefaultBoundary returns the reference container.
func DefaultBoundary() Boundary {
	return Boundary{HalfWidth: 8, Elasticity: 0.5, Epsilon: 1e-4}
}

// Collide reflects p off the floor and side walls. h is the smoothing radius.
func (b Boundary) Collide(p *Particle, h float32) {
	if p.Position[1] < h {
		p.Position[1] = -p.Position[1] + 2*h + b.Epsilon
		p.Velocity[1] = -p.Velocity[1] * b.Elasticity
	}

	lo := h - b.HalfWidth
	hi := b.HalfWidth - h
	for _, axis := range [2]int{0, 2} {
		if p.Position[axis] < lo {
			p.Position[axis] = -p.Position[axis] + 2*lo + b.Epsilon
			p.Velocity[axis] = -p.Velocity[axis] * b.Elasticity
		}
		if p.Position[axis] > hi {
			p.Position[axis] = -p.Position[axis] + 2*hi - b.Epsilon
			p.Velocity[axis] = -p.Velocity[axis] * b.Elasticity
		}
	}
}

// integrate advances particles [i0, i1) by dt, resolves collisions and
// writes their render transforms.
func integrate(particles []Particle, transforms []mgl32.Mat4, s *Settings, b Boundary, dt float32, i0, i1 int) error {
	h := s.H()
	g := mgl32.Vec3{0, s.Gravity(), 0}
	scale := s.SphereScale()

	for i := i0; i < i1; i++ {
		p := &particles[i]

		acc := g
		// Zero density gets gravity only, never F/0.
		if p.Density > 0 {
			acc = acc.Add(p.Force.Mul(1 / p.Density))
		}
		p.Velocity = p.Velocity.Add(acc.Mul(dt))
		p.Position = p.Position.Add(p.Velocity.Mul(dt))

		b.Collide(p, h)
		if !finiteVec(p.Position) || !finiteVec(p.Velocity) {
			return fmt.Errorf("%w: particle %d at %v", ErrNonFinite, p.ID, p.Position)
		}

		transforms[i] = Transform(p, scale)
	}
	return nil
}

func finiteVec(v mgl32.Vec3) bool {
	return finite(v[0]) && finite(v[1]) && finite(v[2])
}
