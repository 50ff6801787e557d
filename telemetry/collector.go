package telemetry

import (
	"math"

	"github.com/pthm-cable/sph/sph"
)

// Collector accumulates tick outcomes within time windows and produces
// WindowStats from the particle field at the end of each window.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int64
	dt                  float32

	// Current window tracking
	windowStartTick int64

	// Event counters for current window
	ticks       int
	failedTicks int

	fields FieldSample
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	ticksPerWindow := int64(math.Round(windowDurationSec / float64(dt)))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordTick records a completed tick.
func (c *Collector) RecordTick() {
	c.ticks++
}

// RecordFailure records a tick that failed and was rolled back.
func (c *Collector) RecordFailure() {
	c.failedTicks++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the current particle field and resets
// counters for the next window.
func (c *Collector) Flush(currentTick int64, particles []sph.Particle, settings *sph.Settings) WindowStats {
	SampleFields(&c.fields, particles)

	density := Summarize(c.fields.Density)
	pressure := Summarize(c.fields.Pressure)
	speed := Summarize(c.fields.Speed)
	height := Summarize(c.fields.Height)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * float64(c.dt),

		Particles:   len(particles),
		FailedTicks: c.failedTicks,
		WindowTicks: c.ticks,

		DensityMean: density.Mean,
		DensityStd:  density.Std,
		DensityMin:  density.Min,
		DensityP10:  density.P10,
		DensityP50:  density.P50,
		DensityP90:  density.P90,
		DensityMax:  density.Max,

		DensityError: DensityError(c.fields.Density, float64(settings.RestDensity())),

		PressureMean: pressure.Mean,
		PressureMin:  pressure.Min,
		PressureMax:  pressure.Max,

		KineticEnergy: KineticEnergy(float64(settings.Mass()), c.fields.Speed),
		SpeedMean:     speed.Mean,
		SpeedMax:      speed.Max,
		HeightMean:    height.Mean,
		HeightMax:     height.Max,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.ticks = 0
	c.failedTicks = 0

	return stats
}

// Reset restarts windowing at tick zero, discarding counters.
func (c *Collector) Reset() {
	c.windowStartTick = 0
	c.ticks = 0
	c.failedTicks = 0
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowDurationTicks
}
