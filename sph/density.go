package sph

// computeDensity sets Density and Pressure for particles [i0, i1).
func computeDensity(particles []Particle, table *NeighborTable, s *Settings, i0, i1 int, scratch []Neighbor) []Neighbor {
	h, h2 := s.H(), s.H2()
	massPoly6 := s.MassPoly6()
	self := s.SelfDensity()
	gas, rest := s.GasConstant(), s.RestDensity()

	for i := i0; i < i1; i++ {
		scratch = table.QueryInto(scratch[:0], particles, i, h, h2)

		var sum float32
		for k := range scratch {
			w := h2 - scratch[k].DistSq
			sum += massPoly6 * w * w * w
		}

		p := &particles[i]
		p.Density = sum + self
		p.Pressure = gas * (p.Density - rest)
	}
	return scratch
}
