package sph

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultFixedStep is the integration step used regardless of frame time.
const DefaultFixedStep float32 = 0.003

// ErrInvalidCubeWidth is returned for a non-positive cube width.
var ErrInvalidCubeWidth = errors.New("sph: cube width must be positive")

// State is the run state of a System.
type State int

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures a System. Zero fields take defaults.
type Options struct {
	Workers   int       // <= 0 means GOMAXPROCS
	Boundary  *Boundary // nil means DefaultBoundary
	Layout    *Layout   // nil means DefaultLayout
	FixedStep float32   // <= 0 means DefaultFixedStep
	Logger    *slog.Logger
	Observer  PhaseObserver
}

// System owns a particle array, its render transforms and the pipeline that
// advances them.
type System struct {
	settings  *Settings
	width     int
	layout    Layout
	fixedStep float32
	log       *slog.Logger

	pool     *Pool
	pipeline *Pipeline

	particles  []Particle
	transforms []mgl32.Mat4
	state      State
	tick       int64
}

// NewSystem creates cubeWidth^3 particles in their initial layout. The
// system starts Idle.
func NewSystem(cubeWidth int, settings *Settings, opts Options) (*System, error) {
	if cubeWidth <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCubeWidth, cubeWidth)
	}
	if settings == nil {
		return nil, fmt.Errorf("%w: nil settings", ErrInvalidParams)
	}
	n := uint64(cubeWidth) * uint64(cubeWidth) * uint64(cubeWidth)
	if n >= EmptyBucket {
		return nil, fmt.Errorf("%w: %d", ErrTooManyParticles, n)
	}

	boundary := DefaultBoundary()
	if opts.Boundary != nil {
		boundary = *opts.Boundary
	}
	layout := DefaultLayout()
	if opts.Layout != nil {
		layout = *opts.Layout
	}
	step := opts.FixedStep
	if step <= 0 {
		step = DefaultFixedStep
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pool := NewPool(opts.Workers)
	pipeline := NewPipeline(settings, boundary, pool)
	pipeline.SetObserver(opts.Observer)

	s := &System{
		settings:   settings,
		width:      cubeWidth,
		layout:     layout,
		fixedStep:  step,
		log:        logger,
		pool:       pool,
		pipeline:   pipeline,
		particles:  make([]Particle, n),
		transforms: make([]mgl32.Mat4, n),
	}
	s.initParticles()
	return s, nil
}

// initParticles lays out the cube and recomputes every transform.
func (s *System) initParticles() {
	s.layout.Fill(s.particles, s.width, s.settings.H())
	scale := s.settings.SphereScale()
	for i := range s.particles {
		s.transforms[i] = Transform(&s.particles[i], scale)
	}
	s.tick = 0
}

// Start switches the system to Running.
func (s *System) Start() {
	if s.state == StateRunning {
		return
	}
	s.state = StateRunning
	s.log.Info("sph_start", "particles", len(s.particles), "workers", s.pool.Workers())
}

// Reset restores the initial layout and returns to Idle.
func (s *System) Reset() {
	s.initParticles()
	s.state = StateIdle
	s.log.Info("sph_reset", "particles", len(s.particles))
}

// Update advances one fixed step when Running. dt is the caller's frame time
// and does not affect the step size. On error the particles are unchanged.
func (s *System) Update(dt float32) error {
	if s.state != StateRunning {
		return nil
	}
	if err := s.pipeline.Step(s.particles, s.transforms, s.fixedStep); err != nil {
		s.log.Error("sph_tick_failed", "tick", s.tick, "frame_dt", dt, "error", err)
		return fmt.Errorf("tick %d: %w", s.tick, err)
	}
	s.tick++
	return nil
}

// SetObserver installs o (may be nil) to receive stage notifications.
func (s *System) SetObserver(o PhaseObserver) { s.pipeline.SetObserver(o) }

// Transforms returns one render matrix per particle. The slice is owned by
// the system and is rewritten by Update and Reset.
func (s *System) Transforms() []mgl32.Mat4 { return s.transforms }

// Particles returns the live particle array in its current (hash-sorted)
// order. Callers must not modify it.
func (s *System) Particles() []Particle { return s.particles }

func (s *System) State() State        { return s.state }
func (s *System) Tick() int64         { return s.tick }
func (s *System) Count() int          { return len(s.particles) }
func (s *System) CubeWidth() int      { return s.width }
func (s *System) Settings() *Settings { return s.settings }
func (s *System) FixedStep() float32  { return s.fixedStep }
func (s *System) Workers() int        { return s.pool.Workers() }

// Close stops the worker pool.
func (s *System) Close() {
	s.pool.Close()
}
