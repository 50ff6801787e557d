// Package game is the raylib front end: it steps a sim.Runner once per
// frame and draws the fluid with its panels.
package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph/camera"
	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/renderer"
	"github.com/pthm-cable/sph/sim"
	"github.com/pthm-cable/sph/ui"
)

const controlsText = "Mouse drag: orbit | Right drag: pan | Wheel: zoom | Home: reset view | Space: start | R: reset | H: overlays"

// Game holds the viewer state around a runner.
type Game struct {
	cfg    *config.Config
	runner *sim.Runner

	camera    *camera.Camera
	particles *renderer.ParticleRenderer
	container *renderer.ContainerRenderer

	overlays *ui.OverlayRegistry
	hud      *ui.HUD
	controls *ui.ControlsPanel
	stats    *ui.StatsPanel
	perf     *ui.PerfPanel
	keys     *ui.KeyBindingsPanel

	screenWidth, screenHeight float32
}

// NewGame creates the viewer. Must be called after rl.InitWindow.
func NewGame(cfg *config.Config, runner *sim.Runner) *Game {
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	cc := cfg.Camera

	g := &Game{
		cfg:    cfg,
		runner: runner,
		camera: camera.New(w, h,
			cfg.CameraTarget(),
			float32(cc.Distance), float32(cc.Yaw), float32(cc.Pitch), float32(cc.FovY)),
		particles:    renderer.NewParticleRenderer(),
		container:    renderer.NewContainerRenderer(3),
		overlays:     ui.NewOverlayRegistry(),
		hud:          ui.NewHUD(),
		controls:     ui.NewControlsPanel(10, 120, 260, runner.Params()),
		perf:         ui.NewPerfPanel(int32(w)-280, 16),
		keys:         ui.NewKeyBindingsPanel(int32(w)-230, 200, 220),
		screenWidth:  w,
		screenHeight: h,
	}
	g.rebuildStatsPanel()
	return g
}

func (g *Game) rebuildStatsPanel() {
	p := g.runner.Params()
	y := int32(130)
	if g.overlays.IsEnabled(ui.OverlayControls) {
		y += g.controls.Height()
	}
	g.stats = ui.NewStatsPanel(10, y, 260, p.RestDensity, p.GasConstant)
}

// Update handles input and advances the simulation by one fixed step.
func (g *Game) Update() {
	g.handleInput()
	// A failed step leaves the system unchanged; the HUD shows the error.
	_ = g.runner.Step(rl.GetFrameTime())
	g.runner.Perf().RecordFrame()
}

// Draw renders the scene and panels for one frame.
func (g *Game) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 18, G: 20, B: 24, A: 255})

	g.drawScene()
	g.drawPanels()

	rl.EndDrawing()
}

// Unload releases the runner.
func (g *Game) Unload() {
	if err := g.runner.Close(); err != nil {
		slog.Error("failed to close runner", "error", err)
	}
}

// Tick returns the current simulation tick.
func (g *Game) Tick() int64 {
	return g.runner.System().Tick()
}
