package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/sph/sph"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	Particles   int `csv:"particles"`
	FailedTicks int `csv:"failed_ticks"`
	WindowTicks int `csv:"window_ticks"`

	// Density distribution (sampled at window end)
	DensityMean float64 `csv:"density_mean"`
	DensityStd  float64 `csv:"density_std"`
	DensityMin  float64 `csv:"density_min"`
	DensityP10  float64 `csv:"density_p10"`
	DensityP50  float64 `csv:"density_p50"`
	DensityP90  float64 `csv:"density_p90"`
	DensityMax  float64 `csv:"density_max"`

	// Mean |rho - rho0| / rho0
	DensityError float64 `csv:"density_error"`

	PressureMean float64 `csv:"pressure_mean"`
	PressureMin  float64 `csv:"pressure_min"`
	PressureMax  float64 `csv:"pressure_max"`

	// Motion
	KineticEnergy float64 `csv:"kinetic_energy"` // sum of m*|v|^2/2
	SpeedMean     float64 `csv:"speed_mean"`
	SpeedMax      float64 `csv:"speed_max"`
	HeightMean    float64 `csv:"height_mean"`
	HeightMax     float64 `csv:"height_max"`
}

// Percentile returns the p-th quantile of a sorted slice, linearly
// interpolated with the first sample at cumulative probability 1/n. p is
// clamped to [0, 1]. Returns 0 if the slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.Quantile(min(max(p, 0), 1), stat.LinInterp, sorted, nil)
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	Min, Max      float64
	P10, P50, P90 float64
}

// Summarize computes mean, population standard deviation, extremes and
// interpolated percentiles. values is not modified.
func Summarize(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}

	mean, variance := stat.PopMeanVariance(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Distribution{
		Mean: mean,
		Std:  math.Sqrt(variance),
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		P10:  Percentile(sorted, 0.10),
		P50:  Percentile(sorted, 0.50),
		P90:  Percentile(sorted, 0.90),
	}
}

// FieldSample holds per-particle scalar fields extracted from a particle array.
type FieldSample struct {
	Density  []float64
	Pressure []float64
	Speed    []float64
	Height   []float64
}

// SampleFields extracts scalar fields from particles, reusing buf's storage.
func SampleFields(buf *FieldSample, particles []sph.Particle) {
	n := len(particles)
	buf.Density = resize(buf.Density, n)
	buf.Pressure = resize(buf.Pressure, n)
	buf.Speed = resize(buf.Speed, n)
	buf.Height = resize(buf.Height, n)

	for i := range particles {
		p := &particles[i]
		buf.Density[i] = float64(p.Density)
		buf.Pressure[i] = float64(p.Pressure)
		buf.Speed[i] = float64(p.Velocity.Len())
		buf.Height[i] = float64(p.Position[1])
	}
}

func resize(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}

// KineticEnergy returns the total kinetic energy of equal-mass particles
// with the given speeds.
func KineticEnergy(mass float64, speeds []float64) float64 {
	return 0.5 * mass * floats.Dot(speeds, speeds)
}

// DensityError returns the mean relative deviation from the rest density.
func DensityError(densities []float64, rest float64) float64 {
	if len(densities) == 0 || rest == 0 {
		return 0
	}
	var sum float64
	for _, d := range densities {
		sum += math.Abs(d-rest) / rest
	}
	return sum / float64(len(densities))
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("particles", s.Particles),
		slog.Int("failed_ticks", s.FailedTicks),
		slog.Float64("density_mean", s.DensityMean),
		slog.Float64("density_std", s.DensityStd),
		slog.Float64("density_p50", s.DensityP50),
		slog.Float64("density_error", s.DensityError),
		slog.Float64("pressure_mean", s.PressureMean),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("speed_max", s.SpeedMax),
		slog.Float64("height_mean", s.HeightMean),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"particles", s.Particles,
		"failed_ticks", s.FailedTicks,
		"density_mean", s.DensityMean,
		"density_std", s.DensityStd,
		"density_min", s.DensityMin,
		"density_p10", s.DensityP10,
		"density_p50", s.DensityP50,
		"density_p90", s.DensityP90,
		"density_max", s.DensityMax,
		"density_error", s.DensityError,
		"pressure_mean", s.PressureMean,
		"pressure_min", s.PressureMin,
		"pressure_max", s.PressureMax,
		"kinetic_energy", s.KineticEnergy,
		"speed_mean", s.SpeedMean,
		"speed_max", s.SpeedMax,
		"height_mean", s.HeightMean,
		"height_max", s.HeightMax,
	)
}
