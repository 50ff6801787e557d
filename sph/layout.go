package sph

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// Layout describes the jittered cube particles start in.
type Layout struct {
	Seed           int64
	SpacingPad     float32 // added to h for grid spacing
	OriginX        float32 // x offset of the cube corner
	OriginZ        float32 // z offset of the cube corner
	FloorClearance float32 // gap above y = h
}

// DefaultLayout returns the reference starting cube.
func DefaultLayout() Layout {
	return Layout{
		Seed:           1024,
		SpacingPad:     0.01,
		OriginX:        -1.5,
		OriginZ:        -1.5,
		FloorClearance: 0.1,
	}
}

// Fill places width^3 particles into dst (which must have that length) on a
// jittered grid. The random source is reseeded on every call, so repeated
// fills with the same layout are identical.
func (l Layout) Fill(dst []Particle, width int, h float32) {
	rng := rand.New(rand.NewSource(l.Seed))
	sep := h + l.SpacingPad
	jitter := func() float32 {
		return (rng.Float32()*0.5 - 1) * h / 10
	}

	for i := 0; i < width; i++ {
		for j := 0; j < width; j++ {
			for k := 0; k < width; k++ {
				jx, jy, jz := jitter(), jitter(), jitter()
				idx := i + (j+width*k)*width
				dst[idx] = Particle{
					Position: mgl32.Vec3{
						float32(i)*sep + jx + l.OriginX,
						float32(j)*sep + jy + h + l.FloorClearance,
						float32(k)*sep + jz + l.OriginZ,
					},
					ID: uint32(idx),
				}
			}
		}
	}
}
