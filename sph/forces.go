package sph

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// computeForces sets Force from the pressure and viscosity terms for
// particles [i0, i1). Density and pressure must already be current for every
// particle.
func computeForces(particles []Particle, table *NeighborTable, s *Settings, i0, i1 int, scratch []Neighbor) []Neighbor {
	h, h2 := s.H(), s.H2()
	mass := s.Mass()
	visc := s.Viscosity()
	spikyGrad, spikyLap := s.SpikyGrad(), s.SpikyLap()

	for i := i0; i < i1; i++ {
		pi := &particles[i]
		pi.Force = mgl32.Vec3{}

		scratch = table.QueryInto(scratch[:0], particles, i, h, h2)
		for k := range scratch {
			n := &scratch[k]
			pj := &particles[n.Index]
			// Dividing by a zero density would put Inf or NaN into the force.
			if pj.Density <= 0 {
				continue
			}

			dist := float32(math.Sqrt(float64(n.DistSq)))
			hd := h - dist

			if dist > 0 {
				dir := n.Delta.Mul(1 / dist)
				mag := mass * (pi.Pressure + pj.Pressure) / (2 * pj.Density) * spikyGrad * hd * hd
				pi.Force = pi.Force.Sub(dir.Mul(mag))
			}

			dv := pj.Velocity.Sub(pi.Velocity)
			pi.Force = pi.Force.Add(dv.Mul(visc * mass / pj.Density * spikyLap * hd))
		}
	}
	return scratch
}
