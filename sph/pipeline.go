package sph

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// Stage names reported to a PhaseObserver, in execution order.
const (
	StageHash      = "hash"
	StageSort      = "sort"
	StageTable     = "table"
	StageDensity   = "density"
	StageForces    = "forces"
	StageIntegrate = "integrate"
)

// Stages lists every pipeline stage in execution order.
var Stages = []string{StageHash, StageSort, StageTable, StageDensity, StageForces, StageIntegrate}

// PhaseObserver is notified when each stage begins.
type PhaseObserver interface {
	StartPhase(name string)
}

// Pipeline runs one simulation tick as a fixed sequence of stages. Parallel
// stages only write particles inside their own partition; each stage
// completes before the next starts.
type Pipeline struct {
	settings *Settings
	boundary Boundary
	pool     *Pool
	table    *NeighborTable
	observer PhaseObserver

	scratches [][]Neighbor // per-worker neighbor buffers
	backup    []Particle
}

// NewPipeline creates a pipeline that owns its neighbor table and schedules
// work on pool.
func NewPipeline(s *Settings, b Boundary, pool *Pool) *Pipeline {
	scratches := make([][]Neighbor, pool.Workers())
	for i := range scratches {
		scratches[i] = make([]Neighbor, 0, 64)
	}
	return &Pipeline{
		settings:  s,
		boundary:  b,
		pool:      pool,
		table:     NewNeighborTable(),
		scratches: scratches,
	}
}

// SetObserver installs o (may be nil) to receive stage notifications.
func (pl *Pipeline) SetObserver(o PhaseObserver) { pl.observer = o }

// Table exposes the neighbor table. It is only built while a Step is running.
func (pl *Pipeline) Table() *NeighborTable { return pl.table }

func (pl *Pipeline) phase(name string) {
	if pl.observer != nil {
		pl.observer.StartPhase(name)
	}
}

// Step advances particles by dt and rewrites transforms. On error the
// particle array is restored to its state before the call and transforms
// are recomputed from it.
func (pl *Pipeline) Step(particles []Particle, transforms []mgl32.Mat4, dt float32) error {
	if len(transforms) != len(particles) {
		return fmt.Errorf("sph: %d transforms for %d particles", len(transforms), len(particles))
	}
	pl.backup = append(pl.backup[:0], particles...)
	defer pl.table.Release()

	if err := pl.run(particles, transforms, dt); err != nil {
		copy(particles, pl.backup)
		scale := pl.settings.SphereScale()
		for i := range particles {
			transforms[i] = Transform(&particles[i], scale)
		}
		return err
	}
	return nil
}

func (pl *Pipeline) run(particles []Particle, transforms []mgl32.Mat4, dt float32) error {
	s := pl.settings
	n := len(particles)

	pl.phase(StageHash)
	if err := pl.pool.Run(n, func(_, i0, i1 int) error {
		h := s.H()
		for i := i0; i < i1; i++ {
			particles[i].Hash = HashPosition(particles[i].Position, h)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("%s stage: %w", StageHash, err)
	}

	pl.phase(StageSort)
	slices.SortStableFunc(particles, func(a, b Particle) int {
		return cmp.Compare(a.Hash, b.Hash)
	})

	pl.phase(StageTable)
	if err := pl.table.Build(particles); err != nil {
		return fmt.Errorf("%s stage: %w", StageTable, err)
	}

	pl.phase(StageDensity)
	if err := pl.pool.Run(n, func(w, i0, i1 int) error {
		pl.scratches[w] = computeDensity(particles, pl.table, s, i0, i1, pl.scratches[w])
		return nil
	}); err != nil {
		return fmt.Errorf("%s stage: %w", StageDensity, err)
	}

	pl.phase(StageForces)
	if err := pl.pool.Run(n, func(w, i0, i1 int) error {
		pl.scratches[w] = computeForces(particles, pl.table, s, i0, i1, pl.scratches[w])
		return nil
	}); err != nil {
		return fmt.Errorf("%s stage: %w", StageForces, err)
	}

	pl.phase(StageIntegrate)
	if err := pl.pool.Run(n, func(_, i0, i1 int) error {
		return integrate(particles, transforms, s, pl.boundary, dt, i0, i1)
	}); err != nil {
		return fmt.Errorf("%s stage: %w", StageIntegrate, err)
	}
	return nil
}
