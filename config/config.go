// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/sph/sph"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Fluid      FluidConfig      `yaml:"fluid"`
	Scene      SceneConfig      `yaml:"scene"`
	Simulation SimulationConfig `yaml:"simulation"`
	Screen     ScreenConfig     `yaml:"screen"`
	Camera     CameraConfig     `yaml:"camera"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Terminal   TerminalConfig   `yaml:"terminal"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// FluidConfig holds the physical fluid parameters.
type FluidConfig struct {
	Mass        float64 `yaml:"mass"`
	RestDensity float64 `yaml:"rest_density"`
	GasConstant float64 `yaml:"gas_constant"`
	Viscosity   float64 `yaml:"viscosity"`
	H           float64 `yaml:"h"` // smoothing radius
	Gravity     float64 `yaml:"gravity"`
	Tension     float64 `yaml:"tension"` // carried, not applied
}

// SceneConfig holds the initial particle layout.
type SceneConfig struct {
	CubeWidth      int     `yaml:"cube_width"` // particles per cube edge
	Seed           int64   `yaml:"seed"`
	SpacingPad     float64 `yaml:"spacing_pad"`
	OriginX        float64 `yaml:"origin_x"`
	OriginZ        float64 `yaml:"origin_z"`
	FloorClearance float64 `yaml:"floor_clearance"`
}

// SimulationConfig holds stepping and container parameters.
type SimulationConfig struct {
	FixedDT          float64 `yaml:"fixed_dt"`
	Workers          int     `yaml:"workers"` // 0 = GOMAXPROCS
	BoxHalfWidth     float64 `yaml:"box_half_width"`
	Elasticity       float64 `yaml:"elasticity"`
	CollisionEpsilon float64 `yaml:"collision_epsilon"`
	StartRunning     bool    `yaml:"start_running"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// CameraConfig holds the initial orbit camera pose.
type CameraConfig struct {
	Distance float64 `yaml:"distance"`
	Yaw      float64 `yaml:"yaw"`   // degrees
	Pitch    float64 `yaml:"pitch"` // degrees
	TargetY  float64 `yaml:"target_y"`
	FovY     float64 `yaml:"fov_y"` // degrees
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // simulation seconds
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// TerminalConfig holds terminal preview settings.
type TerminalConfig struct {
	FPS int `yaml:"fps"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Params        sph.Params   // Fluid as float32
	Boundary      sph.Boundary // Simulation container as float32
	Layout        sph.Layout   // Scene layout as float32
	FixedDT32     float32      // Simulation.FixedDT as float32
	ParticleCount int          // Scene.CubeWidth^3
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks settings that the fluid engine does not check itself.
// Physical parameters are validated by sph.NewSettings.
func (c *Config) Validate() error {
	var errs []error
	if c.Scene.CubeWidth <= 0 {
		errs = append(errs, fmt.Errorf("scene.cube_width must be positive, got %d", c.Scene.CubeWidth))
	}
	if c.Simulation.FixedDT <= 0 {
		errs = append(errs, fmt.Errorf("simulation.fixed_dt must be positive, got %v", c.Simulation.FixedDT))
	}
	if c.Simulation.Workers < 0 {
		errs = append(errs, fmt.Errorf("simulation.workers must be >= 0, got %d", c.Simulation.Workers))
	}
	if c.Simulation.BoxHalfWidth <= c.Fluid.H {
		errs = append(errs, fmt.Errorf("simulation.box_half_width (%v) must exceed fluid.h (%v)", c.Simulation.BoxHalfWidth, c.Fluid.H))
	}
	if c.Telemetry.StatsWindow <= 0 {
		errs = append(errs, fmt.Errorf("telemetry.stats_window must be positive, got %v", c.Telemetry.StatsWindow))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Refresh re-validates the config and recomputes derived values after
// fields were changed in code.
func (c *Config) Refresh() error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Params = c.Fluid.Params()
	c.Derived.Boundary = sph.Boundary{
		HalfWidth:  float32(c.Simulation.BoxHalfWidth),
		Elasticity: float32(c.Simulation.Elasticity),
		Epsilon:    float32(c.Simulation.CollisionEpsilon),
	}
	c.Derived.Layout = sph.Layout{
		Seed:           c.Scene.Seed,
		SpacingPad:     float32(c.Scene.SpacingPad),
		OriginX:        float32(c.Scene.OriginX),
		OriginZ:        float32(c.Scene.OriginZ),
		FloorClearance: float32(c.Scene.FloorClearance),
	}
	c.Derived.FixedDT32 = float32(c.Simulation.FixedDT)
	w := c.Scene.CubeWidth
	c.Derived.ParticleCount = w * w * w
}

// Params converts the fluid section to engine parameters.
func (f FluidConfig) Params() sph.Params {
	return sph.Params{
		Mass:        float32(f.Mass),
		RestDensity: float32(f.RestDensity),
		GasConstant: float32(f.GasConstant),
		Viscosity:   float32(f.Viscosity),
		H:           float32(f.H),
		Gravity:     float32(f.Gravity),
		Tension:     float32(f.Tension),
	}
}

// Settings builds validated engine settings from the fluid section.
func (c *Config) Settings() (*sph.Settings, error) {
	s, err := sph.NewSettings(c.Derived.Params)
	if err != nil {
		return nil, fmt.Errorf("fluid config: %w", err)
	}
	return s, nil
}

// SystemOptions returns engine options for the configured container,
// layout and step. Logger and observer are left to the caller.
func (c *Config) SystemOptions() sph.Options {
	b := c.Derived.Boundary
	l := c.Derived.Layout
	return sph.Options{
		Workers:   c.Simulation.Workers,
		Boundary:  &b,
		Layout:    &l,
		FixedStep: c.Derived.FixedDT32,
	}
}

// CameraTarget returns the orbit target: the centre of the initial cube
// at the configured height.
func (c *Config) CameraTarget() mgl32.Vec3 {
	l := c.Derived.Layout
	half := float32(c.Scene.CubeWidth-1) * (c.Derived.Params.H + l.SpacingPad) / 2
	return mgl32.Vec3{l.OriginX + half, float32(c.Camera.TargetY), l.OriginZ + half}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
