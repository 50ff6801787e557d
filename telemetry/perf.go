package telemetry

import (
	"log/slog"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/sph/sph"
)

// Phase names for the simulation step. The first six are the fluid
// pipeline stages, reported by sph.Pipeline through StartPhase.
const (
	PhaseHash      = sph.StageHash
	PhaseSort      = sph.StageSort
	PhaseTable     = sph.StageTable
	PhaseDensity   = sph.StageDensity
	PhaseForces    = sph.StageForces
	PhaseIntegrate = sph.StageIntegrate
	PhaseTelemetry = "telemetry"
)

// phaseOrder is the reporting order for logs and CSV.
var phaseOrder = [...]string{
	PhaseHash, PhaseSort, PhaseTable,
	PhaseDensity, PhaseForces, PhaseIntegrate,
	PhaseTelemetry,
}

const phaseCount = len(phaseOrder)

// Phases returns the phase names in reporting order.
func Phases() []string {
	return slices.Clone(phaseOrder[:])
}

func phaseIndex(name string) int {
	for i, p := range phaseOrder {
		if p == name {
			return i
		}
	}
	return -1
}

// tickSample is the timing of one tick. Phases is indexed like phaseOrder.
type tickSample struct {
	total  time.Duration
	phases [phaseCount]time.Duration
	ran    [phaseCount]bool
}

// PerfCollector keeps per-stage timings for the last windowSize ticks. It
// satisfies sph.PhaseObserver. Phase names outside Phases() are ignored.
type PerfCollector struct {
	ring  []tickSample
	next  int
	count int

	cur        tickSample
	tickStart  time.Time
	phaseStart time.Time
	phase      int

	lastFrame     time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		ring:  make([]tickSample, windowSize),
		phase: -1,
	}
}

// StartTick begins timing a new simulation tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.cur = tickSample{}
	p.phase = -1
}

// StartPhase closes the running phase and opens the named one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	p.closePhase(now)
	p.phaseStart = now
	p.phase = phaseIndex(phase)
	if p.phase >= 0 {
		p.cur.ran[p.phase] = true
	}
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase >= 0 {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
	}
}

// EndTick closes the tick and stores it in the window.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.phase = -1
	p.cur.total = now.Sub(p.tickStart)

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	if p.count < len(p.ring) {
		p.count++
	}
}

// RecordFrame marks a rendered frame; the gap between calls is the frame time.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frameDuration = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// Reset drops all recorded ticks. Frame timing is kept.
func (p *PerfCollector) Reset() {
	p.next, p.count = 0, 0
	p.phase = -1
}

// PerfStats aggregates the window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	P95TickDuration time.Duration

	// Per-phase average duration and share of the average tick, keyed by
	// phase name. Only phases that ran are present.
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	TicksPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	out := PerfStats{
		PhaseAvg:      make(map[string]time.Duration, phaseCount),
		PhasePct:      make(map[string]float64, phaseCount),
		FrameDuration: p.frameDuration,
	}
	if p.frameDuration > 0 {
		out.FPS = float64(time.Second) / float64(p.frameDuration)
	}
	if p.count == 0 {
		return out
	}

	ticks := make([]float64, p.count)
	var phaseSum [phaseCount]time.Duration
	var ran [phaseCount]bool
	for i, s := range p.ring[:p.count] {
		ticks[i] = float64(s.total)
		for j, d := range s.phases {
			phaseSum[j] += d
			ran[j] = ran[j] || s.ran[j]
		}
	}

	mean := stat.Mean(ticks, nil)
	slices.Sort(ticks)
	out.AvgTickDuration = time.Duration(mean)
	out.MinTickDuration = time.Duration(ticks[0])
	out.MaxTickDuration = time.Duration(ticks[len(ticks)-1])
	out.P95TickDuration = time.Duration(stat.Quantile(0.95, stat.Empirical, ticks, nil))
	if mean > 0 {
		out.TicksPerSecond = float64(time.Second) / mean
	}

	for j, name := range phaseOrder {
		if !ran[j] {
			continue
		}
		avg := phaseSum[j] / time.Duration(p.count)
		out.PhaseAvg[name] = avg
		if mean > 0 {
			out.PhasePct[name] = float64(avg) / mean * 100
		}
	}
	return out
}

// LogStats logs the window at info level.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("p95_tick_us", s.P95TickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, phase := range phaseOrder {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	WindowEnd    int64   `csv:"window_end"`
	AvgTickUS    int64   `csv:"avg_tick_us"`
	MinTickUS    int64   `csv:"min_tick_us"`
	MaxTickUS    int64   `csv:"max_tick_us"`
	P95TickUS    int64   `csv:"p95_tick_us"`
	TicksPerSec  float64 `csv:"ticks_per_sec"`
	FPS          float64 `csv:"fps"`
	HashPct      float64 `csv:"hash_pct"`
	SortPct      float64 `csv:"sort_pct"`
	TablePct     float64 `csv:"table_pct"`
	DensityPct   float64 `csv:"density_pct"`
	ForcesPct    float64 `csv:"forces_pct"`
	IntegratePct float64 `csv:"integrate_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats for the window ending at tick windowEnd.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:    windowEnd,
		AvgTickUS:    s.AvgTickDuration.Microseconds(),
		MinTickUS:    s.MinTickDuration.Microseconds(),
		MaxTickUS:    s.MaxTickDuration.Microseconds(),
		P95TickUS:    s.P95TickDuration.Microseconds(),
		TicksPerSec:  s.TicksPerSecond,
		FPS:          s.FPS,
		HashPct:      s.PhasePct[PhaseHash],
		SortPct:      s.PhasePct[PhaseSort],
		TablePct:     s.PhasePct[PhaseTable],
		DensityPct:   s.PhasePct[PhaseDensity],
		ForcesPct:    s.PhasePct[PhaseForces],
		IntegratePct: s.PhasePct[PhaseIntegrate],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
	}
}
