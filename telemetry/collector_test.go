package telemetry

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sph/sph"
)

func TestCollector_WindowTicks(t *testing.T) {
	c := NewCollector(0.3, 0.003)
	if c.WindowDurationTicks() != 100 {
		t.Fatalf("WindowDurationTicks() = %d, want 100", c.WindowDurationTicks())
	}
	if c.ShouldFlush(99) {
		t.Error("should not flush before the window ends")
	}
	if !c.ShouldFlush(100) {
		t.Error("should flush at the window end")
	}

	tiny := NewCollector(0.0001, 0.003)
	if tiny.WindowDurationTicks() != 1 {
		t.Errorf("tiny window = %d ticks, want 1", tiny.WindowDurationTicks())
	}
}

func TestCollector_FlushSummarizesParticles(t *testing.T) {
	settings := sph.MustSettings(sph.DefaultParams())
	particles := []sph.Particle{
		{Position: mgl32.Vec3{0, 1, 0}, Velocity: mgl32.Vec3{3, 4, 0}, Density: 900, Pressure: -100},
		{Position: mgl32.Vec3{0, 3, 0}, Velocity: mgl32.Vec3{0, 0, 0}, Density: 1100, Pressure: 100},
	}

	c := NewCollector(0.3, 0.003)
	for i := 0; i < 5; i++ {
		c.RecordTick()
	}
	c.RecordFailure()

	stats := c.Flush(100, particles, settings)

	if stats.WindowStartTick != 0 || stats.WindowEndTick != 100 {
		t.Errorf("window = [%d, %d], want [0, 100]", stats.WindowStartTick, stats.WindowEndTick)
	}
	if math.Abs(stats.SimTimeSec-0.3) > 1e-6 {
		t.Errorf("sim time = %v, want 0.3", stats.SimTimeSec)
	}
	if stats.Particles != 2 || stats.WindowTicks != 5 || stats.FailedTicks != 1 {
		t.Errorf("counts = %d particles, %d ticks, %d failed", stats.Particles, stats.WindowTicks, stats.FailedTicks)
	}
	if stats.DensityMean != 1000 || stats.DensityMin != 900 || stats.DensityMax != 1100 {
		t.Errorf("density mean/min/max = %v/%v/%v", stats.DensityMean, stats.DensityMin, stats.DensityMax)
	}
	if math.Abs(stats.DensityError-0.1) > 1e-6 {
		t.Errorf("density error = %v, want 0.1", stats.DensityError)
	}
	if stats.PressureMean != 0 {
		t.Errorf("pressure mean = %v, want 0", stats.PressureMean)
	}
	// 0.5 * 0.02 * 25
	if math.Abs(stats.KineticEnergy-0.25) > 1e-6 {
		t.Errorf("kinetic energy = %v, want 0.25", stats.KineticEnergy)
	}
	if stats.SpeedMax != 5 || stats.HeightMean != 2 {
		t.Errorf("speed max %v, height mean %v", stats.SpeedMax, stats.HeightMean)
	}

	// Counters reset for the next window.
	next := c.Flush(200, particles, settings)
	if next.WindowStartTick != 100 || next.WindowTicks != 0 || next.FailedTicks != 0 {
		t.Errorf("counters not reset: %+v", next)
	}
}
