package main

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/sim"
	"github.com/pthm-cable/sph/telemetry"
)

// failedRunFitness is the fitness of a run that diverged or could not start.
const failedRunFitness = 1e6

// FitnessEvaluator runs headless simulations and computes fitness.
// Lower is better.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int64
	seeds      []int64
	baseConfig *config.Config
	keWeight   float64
	workers    int

	mu          sync.Mutex
	lastSummary runSummary
}

// runSummary holds the seed-averaged end state of one evaluation.
type runSummary struct {
	DensityError  float64
	KineticEnergy float64 // per particle
	Failed        int     // seeds that diverged
}

// NewFitnessEvaluator creates a new evaluator. keWeight scales the
// per-particle kinetic energy term.
func NewFitnessEvaluator(params *ParamVector, maxTicks int64, seeds []int64, baseCfg *config.Config, keWeight float64, workers int) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
		keWeight:   keWeight,
		workers:    workers,
	}
}

// LastSummary returns the end state of the most recent evaluation.
func (fe *FitnessEvaluator) LastSummary() runSummary {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSummary
}

type seedResult struct {
	stats  telemetry.WindowStats
	failed bool
}

// Evaluate computes fitness for raw parameter values: mean relative density
// error plus keWeight times kinetic energy per particle, averaged over seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	if err := fe.params.ApplyToConfig(cfg, x); err != nil {
		return failedRunFitness
	}

	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var sum runSummary
	var total float64
	for _, r := range results {
		if r.failed {
			sum.Failed++
			total += failedRunFitness
			continue
		}
		ke := perParticle(r.stats.KineticEnergy, r.stats.Particles)
		sum.DensityError += r.stats.DensityError
		sum.KineticEnergy += ke
		total += r.stats.DensityError + fe.keWeight*ke
	}
	if ok := len(fe.seeds) - sum.Failed; ok > 0 {
		sum.DensityError /= float64(ok)
		sum.KineticEnergy /= float64(ok)
	}

	fe.mu.Lock()
	fe.lastSummary = sum
	fe.mu.Unlock()

	return total / float64(len(fe.seeds))
}

// runSimulation runs one headless simulation to maxTicks and returns the
// final window. cfg is shared read-only across seeds.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) seedResult {
	dt := cfg.Simulation.FixedDT
	r, err := sim.NewRunner(cfg, sim.Options{
		Seed:           seed,
		Workers:        fe.workers,
		StatsWindowSec: float64(fe.maxTicks) * dt,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return seedResult{failed: true}
	}
	defer r.Close()

	if err := r.Run(context.Background(), fe.maxTicks); err != nil {
		return seedResult{failed: true}
	}
	stats := r.LastStats()
	if stats.Particles == 0 || math.IsNaN(stats.DensityError) {
		return seedResult{failed: true}
	}
	return seedResult{stats: stats}
}

func (fe *FitnessEvaluator) copyConfig() *config.Config {
	c := *fe.baseConfig
	return &c
}

func perParticle(v float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return v / float64(n)
}
