// Package sim drives a fluid system with telemetry, independent of any
// viewer. Both the graphical and terminal front ends and headless runs use
// a Runner.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/sph"
	"github.com/pthm-cable/sph/telemetry"
)

// ErrMaxFailures is returned by Run when ticks keep failing.
var ErrMaxFailures = errors.New("sim: too many consecutive failed ticks")

// Options configures a Runner.
type Options struct {
	Seed           int64   // 0 = use config
	Workers        int     // 0 = use config
	LogStats       bool    // log window and perf stats via slog
	StatsWindowSec float64 // 0 = use config
	OutputDir      string  // empty = no CSV output
	MaxFailures    int     // consecutive failed ticks before Run gives up (0 = 1)
	Logger         *slog.Logger

	// StatsCallback, if set, receives every flushed window.
	StatsCallback func(telemetry.WindowStats)
}

// Runner owns a fluid system plus its perf and window telemetry.
type Runner struct {
	cfg    *config.Config
	params sph.Params
	opts   sph.Options
	log    *slog.Logger

	sys       *sph.System
	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	output    *telemetry.OutputManager

	logStats      bool
	statsCallback func(telemetry.WindowStats)
	maxFailures   int

	lastStats   telemetry.WindowStats
	lastErr     error
	failedInRow int
}

// NewRunner builds a system from cfg. The system starts Idle unless
// cfg.Simulation.StartRunning is set.
func NewRunner(cfg *config.Config, opts Options) (*Runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sysOpts := cfg.SystemOptions()
	if opts.Seed != 0 {
		layout := *sysOpts.Layout
		layout.Seed = opts.Seed
		sysOpts.Layout = &layout
	}
	if opts.Workers > 0 {
		sysOpts.Workers = opts.Workers
	}
	sysOpts.Logger = logger

	window := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		window = opts.StatsWindowSec
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := output.WriteConfig(cfg); err != nil {
		output.Close()
		return nil, err
	}

	r := &Runner{
		cfg:           cfg,
		params:        cfg.Derived.Params,
		opts:          sysOpts,
		log:           logger,
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		collector:     telemetry.NewCollector(window, sysOpts.FixedStep),
		output:        output,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
		maxFailures:   max(1, opts.MaxFailures),
	}
	r.opts.Observer = r.perf

	if err := r.build(); err != nil {
		output.Close()
		return nil, err
	}
	if cfg.Simulation.StartRunning {
		r.sys.Start()
	}
	return r, nil
}

// build replaces the system with a fresh one using r.params.
func (r *Runner) build() error {
	settings, err := sph.NewSettings(r.params)
	if err != nil {
		return fmt.Errorf("fluid params: %w", err)
	}
	sys, err := sph.NewSystem(r.cfg.Scene.CubeWidth, settings, r.opts)
	if err != nil {
		return err
	}
	if r.sys != nil {
		r.sys.Close()
	}
	r.sys = sys
	return nil
}

// Start switches the system to Running.
func (r *Runner) Start() {
	r.sys.Start()
}

// Reset restores the initial layout and returns to Idle.
func (r *Runner) Reset() {
	r.sys.Reset()
	r.collector.Reset()
	r.perf.Reset()
	r.lastErr = nil
	r.failedInRow = 0
}

// ResetWithParams rebuilds the system with new fluid parameters and
// returns to Idle. On error the current system is kept.
func (r *Runner) ResetWithParams(p sph.Params) error {
	prev := r.params
	r.params = p
	if err := r.build(); err != nil {
		r.params = prev
		return err
	}
	r.collector.Reset()
	r.perf.Reset()
	r.lastErr = nil
	r.failedInRow = 0
	r.log.Info("params_applied",
		"gas_constant", p.GasConstant,
		"viscosity", p.Viscosity,
		"rest_density", p.RestDensity,
		"h", p.H,
	)
	return nil
}

// Step advances one fixed step if Running and flushes telemetry at window
// boundaries. frameDT is passed through to the system and does not change
// the step size.
func (r *Runner) Step(frameDT float32) error {
	if r.sys.State() != sph.StateRunning {
		return nil
	}

	r.perf.StartTick()
	err := r.sys.Update(frameDT)
	r.perf.StartPhase(telemetry.PhaseTelemetry)
	if err != nil {
		r.collector.RecordFailure()
		r.lastErr = err
		r.failedInRow++
	} else {
		r.collector.RecordTick()
		r.failedInRow = 0
	}
	r.flushTelemetry()
	r.perf.EndTick()

	return err
}

// Run starts the system and steps until maxTicks (0 = unlimited), ctx is
// cancelled, or MaxFailures consecutive ticks fail.
func (r *Runner) Run(ctx context.Context, maxTicks int64) error {
	r.Start()
	for maxTicks <= 0 || r.sys.Tick() < maxTicks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Step(r.sys.FixedStep()); err != nil && r.failedInRow >= r.maxFailures {
			return fmt.Errorf("%w: %w", ErrMaxFailures, err)
		}
	}
	r.log.Info("max_ticks_reached", "tick", r.sys.Tick())
	return nil
}

// System returns the underlying fluid system. It changes on ResetWithParams.
func (r *Runner) System() *sph.System { return r.sys }

// Params returns the fluid parameters of the current system.
func (r *Runner) Params() sph.Params { return r.params }

// Perf returns the perf collector.
func (r *Runner) Perf() *telemetry.PerfCollector { return r.perf }

// LastStats returns the most recently flushed window.
func (r *Runner) LastStats() telemetry.WindowStats { return r.lastStats }

// LastError returns the error of the most recent failed tick, cleared on reset.
func (r *Runner) LastError() error { return r.lastErr }

// SimTime returns the simulated time in seconds.
func (r *Runner) SimTime() float64 {
	return float64(r.sys.Tick()) * float64(r.sys.FixedStep())
}

// Close stops the system and closes any output files.
func (r *Runner) Close() error {
	r.sys.Close()
	return r.output.Close()
}
