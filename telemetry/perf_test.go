package telemetry

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pthm-cable/sph/sph"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate a few ticks
	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseDensity)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseForces)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	// Verify we got timing data
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration")
	}

	// Verify phases are tracked
	if len(stats.PhaseAvg) == 0 {
		t.Error("expected phase averages to be populated")
	}

	if _, ok := stats.PhaseAvg[PhaseDensity]; !ok {
		t.Error("expected density phase to be tracked")
	}

	if _, ok := stats.PhaseAvg[PhaseForces]; !ok {
		t.Error("expected forces phase to be tracked")
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5) // Small window

	// Fill window completely
	for i := 0; i < 10; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseDensity)
		pc.EndTick()
	}

	stats := pc.Stats()

	// Should have data
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration after window filled")
	}

	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate with uneven phase durations
	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseHash)
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase(PhaseForces)
		time.Sleep(2 * time.Millisecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	fastPct := stats.PhasePct[PhaseHash]
	slowPct := stats.PhasePct[PhaseForces]

	// Slow phase should take more % than fast
	if slowPct <= fastPct {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", slowPct, fastPct)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	// Empty collector should return zero values without panicking
	if stats.AvgTickDuration != 0 {
		t.Error("expected zero avg tick duration for empty collector")
	}

	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}

	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

func TestPerfCollector_ObservesPipelineStages(t *testing.T) {
	settings := sph.MustSettings(sph.DefaultParams())
	pc := NewPerfCollector(4)
	sys, err := sph.NewSystem(4, settings, sph.Options{
		Workers:  2,
		Observer: pc,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sys.Close()
	sys.Start()

	for i := 0; i < 3; i++ {
		pc.StartTick()
		if err := sys.Update(0); err != nil {
			t.Fatal(err)
		}
		pc.StartPhase(PhaseTelemetry)
		pc.EndTick()
	}

	stats := pc.Stats()
	for _, phase := range phaseOrder {
		if _, ok := stats.PhaseAvg[phase]; !ok {
			t.Errorf("phase %q not recorded", phase)
		}
	}

	row := stats.ToCSV(3)
	if row.WindowEnd != 3 {
		t.Errorf("WindowEnd = %d, want 3", row.WindowEnd)
	}
	if row.DensityPct != stats.PhasePct[PhaseDensity] || row.SortPct != stats.PhasePct[PhaseSort] {
		t.Error("CSV row does not carry phase percentages")
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	// First call establishes baseline
	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond) // ~60fps frame time
	// Second call measures duration
	pc.RecordFrame()

	stats := pc.Stats()

	if stats.FrameDuration < 15*time.Millisecond {
		t.Errorf("expected frame duration >= 15ms, got %v", stats.FrameDuration)
	}

	if stats.FPS <= 0 {
		t.Error("expected positive FPS")
	}

	// With 16ms frames, expect ~60 FPS (allow range 40-80)
	if stats.FPS < 40 || stats.FPS > 80 {
		t.Errorf("expected FPS between 40-80 with 16ms frame time, got %v", stats.FPS)
	}
}

func TestPerfCollector_IgnoresUnknownPhases(t *testing.T) {
	pc := NewPerfCollector(3)
	pc.StartTick()
	pc.StartPhase("render")
	pc.StartPhase(PhaseIntegrate)
	pc.EndTick()

	stats := pc.Stats()
	if _, ok := stats.PhaseAvg["render"]; ok {
		t.Error("unknown phase should not be reported")
	}
	if _, ok := stats.PhaseAvg[PhaseIntegrate]; !ok {
		t.Error("integrate phase not recorded")
	}
}

func TestPerfCollector_WindowOrdering(t *testing.T) {
	pc := NewPerfCollector(20)
	for i := 0; i < 20; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseDensity)
		if i == 19 {
			time.Sleep(2 * time.Millisecond)
		}
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.MinTickDuration > stats.AvgTickDuration || stats.AvgTickDuration > stats.MaxTickDuration {
		t.Errorf("min %v avg %v max %v out of order",
			stats.MinTickDuration, stats.AvgTickDuration, stats.MaxTickDuration)
	}
	if stats.P95TickDuration > stats.MaxTickDuration {
		t.Errorf("p95 %v above max %v", stats.P95TickDuration, stats.MaxTickDuration)
	}
	if stats.MaxTickDuration < 2*time.Millisecond {
		t.Errorf("max %v, want >= 2ms", stats.MaxTickDuration)
	}

	pc.Reset()
	if got := pc.Stats().AvgTickDuration; got != 0 {
		t.Errorf("after Reset avg = %v, want 0", got)
	}
}
