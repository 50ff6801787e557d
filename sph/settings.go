// Package sph implements a smoothed-particle hydrodynamics fluid engine:
// immutable kernel settings, a hashed neighbor index, a staged parallel
// pipeline, and the particle system that drives it.
package sph

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidSmoothingRadius is returned when h is not a positive finite number.
	ErrInvalidSmoothingRadius = errors.New("sph: smoothing radius must be positive and finite")
	// ErrInvalidParams is returned when a physical parameter is out of range.
	ErrInvalidParams = errors.New("sph: invalid parameters")
)

// Params holds the physical inputs of a simulation.
type Params struct {
	Mass        float32
	RestDensity float32
	GasConstant float32
	Viscosity   float32
	H           float32
	Gravity     float32
	Tension     float32
}

// DefaultParams returns the reference water-like parameter set.
func DefaultParams() Params {
	return Params{
		Mass:        0.02,
		RestDensity: 1000,
		GasConstant: 1,
		Viscosity:   1.04,
		H:           0.15,
		Gravity:     -9.8,
		Tension:     0.2,
	}
}

// Settings is the immutable parameter and kernel-constant bundle shared by
// every worker. Build one with NewSettings.
type Settings struct {
	p Params

	poly6       float32
	spikyGrad   float32
	spikyLap    float32
	h2          float32
	selfDensity float32
	massPoly6   float32
	sphereScale float32
}

// NewSettings validates p and precomputes the kernel constants.
func NewSettings(p Params) (*Settings, error) {
	if !finite(p.H) || p.H <= 0 {
		return nil, fmt.Errorf("%w: h=%v", ErrInvalidSmoothingRadius, p.H)
	}
	for _, f := range []struct {
		name string
		v    float32
		min  float32
		open bool
	}{
		{"mass", p.Mass, 0, true},
		{"rest_density", p.RestDensity, 0, true},
		{"gas_constant", p.GasConstant, 0, true},
		{"viscosity", p.Viscosity, 0, false},
	} {
		if !finite(f.v) || f.v < f.min || (f.open && f.v == f.min) {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidParams, f.name, f.v)
		}
	}
	if !finite(p.Gravity) || !finite(p.Tension) {
		return nil, fmt.Errorf("%w: gravity=%v tension=%v", ErrInvalidParams, p.Gravity, p.Tension)
	}

	// Constants are evaluated in float64; h^9 underflows float32 for small h.
	h := float64(p.H)
	h6 := math.Pow(h, 6)
	h9 := math.Pow(h, 9)
	poly6 := 315.0 / (64.0 * math.Pi * h9)
	mass := float64(p.Mass)

	s := &Settings{
		p:           p,
		poly6:       float32(poly6),
		spikyGrad:   float32(-45.0 / (math.Pi * h6)),
		spikyLap:    float32(45.0 / (math.Pi * h6)),
		h2:          float32(h * h),
		selfDensity: float32(mass * poly6 * h6),
		massPoly6:   float32(mass * poly6),
		sphereScale: float32(h / 2),
	}

	// The float32 constants must stay finite and non-zero.
	for _, c := range []struct {
		name string
		v    float32
	}{
		{"poly6", s.poly6},
		{"spiky_grad", s.spikyGrad},
		{"spiky_lap", s.spikyLap},
		{"h2", s.h2},
		{"self_density", s.selfDensity},
		{"mass_poly6", s.massPoly6},
	} {
		if !finite(c.v) || c.v == 0 {
			return nil, fmt.Errorf("%w: kernel constants out of range at h=%v (%s=%v)",
				ErrInvalidSmoothingRadius, p.H, c.name, c.v)
		}
	}
	return s, nil
}

// MustSettings is like NewSettings but panics on error.
func MustSettings(p Params) *Settings {
	s, err := NewSettings(p)
	if err != nil {
		panic(err)
	}
	return s
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Params returns a copy of the inputs the settings were built from.
func (s *Settings) Params() Params { return s.p }

// Mass is the mass of every particle.
func (s *Settings) Mass() float32 { return s.p.Mass }

// RestDensity is the density at which pressure is zero.
func (s *Settings) RestDensity() float32 { return s.p.RestDensity }

// GasConstant is the stiffness k in P = k(rho - rho0).
func (s *Settings) GasConstant() float32 { return s.p.GasConstant }

// Viscosity scales the viscosity force.
func (s *Settings) Viscosity() float32 { return s.p.Viscosity }

// H is the smoothing radius, also the hash cell size.
func (s *Settings) H() float32 { return s.p.H }

// Gravity is the vertical acceleration.
func (s *Settings) Gravity() float32 { return s.p.Gravity }

// Tension is carried for completeness; no surface tension force is applied.
func (s *Settings) Tension() float32 { return s.p.Tension }

// Poly6 is 315/(64 pi h^9).
func (s *Settings) Poly6() float32 { return s.poly6 }

// SpikyGrad is -45/(pi h^6).
func (s *Settings) SpikyGrad() float32 { return s.spikyGrad }

// SpikyLap is 45/(pi h^6).
func (s *Settings) SpikyLap() float32 { return s.spikyLap }

// H2 is h squared, the neighbor cutoff on squared distance.
func (s *Settings) H2() float32 { return s.h2 }

// SelfDensity is a particle's own contribution, mass * poly6 * h^6.
func (s *Settings) SelfDensity() float32 { return s.selfDensity }

// MassPoly6 is mass * poly6, the density factor per neighbor.
func (s *Settings) MassPoly6() float32 { return s.massPoly6 }

// SphereScale is the uniform render scale applied to each particle transform.
func (s *Settings) SphereScale() float32 { return s.sphereScale }
