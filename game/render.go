package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph/ui"
)

// drawScene renders the container and particles in 3D.
func (g *Game) drawScene() {
	sys := g.runner.System()

	rl.BeginMode3D(g.renderCamera())
	if g.overlays.IsEnabled(ui.OverlayContainer) {
		g.container.Draw(g.cfg.Derived.Boundary)
	}
	if g.overlays.IsEnabled(ui.OverlayGrid) {
		rl.DrawGrid(20, 0.5)
	}
	if g.overlays.IsEnabled(ui.OverlayDensity) {
		g.particles.Draw(sys.Transforms(), sys.Particles())
	} else {
		g.particles.Draw(sys.Transforms(), nil)
	}
	rl.EndMode3D()
}

// drawPanels renders the 2D overlays on top of the scene.
func (g *Game) drawPanels() {
	sys := g.runner.System()

	g.hud.Draw(ui.HUDData{
		Title:     "SPH Fluid",
		State:     sys.State(),
		Tick:      sys.Tick(),
		SimTime:   g.runner.SimTime(),
		Particles: sys.Count(),
		Workers:   sys.Workers(),
		FPS:       rl.GetFPS(),
		LastError: g.runner.LastError(),
	})

	if g.overlays.IsEnabled(ui.OverlayControls) {
		switch g.controls.Draw(sys.State()) {
		case ui.ActionStart:
			g.runner.Start()
		case ui.ActionReset:
			g.reset()
		}
	}
	if g.overlays.IsEnabled(ui.OverlayFieldStats) {
		g.stats.Draw(g.runner.LastStats())
	}
	if g.overlays.IsEnabled(ui.OverlayPerf) {
		g.perf.Draw(g.runner.Perf().Stats())
	}
	if g.overlays.IsEnabled(ui.OverlayKeyBindings) {
		g.keys.Draw(g.overlays)
	}

	g.hud.DrawControls(int32(g.screenHeight), controlsText)
}

// reset applies pending slider values, if any, and returns to Idle.
func (g *Game) reset() {
	if !g.controls.Dirty() {
		g.runner.Reset()
		return
	}
	pending := g.controls.Pending()
	if err := g.runner.ResetWithParams(pending); err != nil {
		slog.Warn("rejected parameters", "error", err)
		g.controls.MarkApplied(g.runner.Params())
		return
	}
	g.controls.MarkApplied(pending)
	g.rebuildStatsPanel()
}
