package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph/renderer"
	"github.com/pthm-cable/sph/sph"
	"github.com/pthm-cable/sph/ui"
)

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) && g.runner.System().State() == sph.StateIdle {
		g.runner.Start()
	}
	if rl.IsKeyPressed(rl.KeyR) {
		g.reset()
	}

	wasControls := g.overlays.IsEnabled(ui.OverlayControls)
	g.overlays.HandleKeys()
	if g.overlays.IsEnabled(ui.OverlayControls) != wasControls {
		g.rebuildStatsPanel()
	}

	g.handleCameraInput()
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h

	g.camera.Resize(w, h)
	g.perf.SetPosition(int32(w)-280, 16)
	g.keys.SetPosition(int32(w)-230, 200)
}

// overPanel reports whether the mouse is over the left panel column, where
// drags belong to the sliders.
func (g *Game) overPanel() bool {
	return g.overlays.IsEnabled(ui.OverlayControls) && rl.GetMouseX() < 280
}

// handleCameraInput processes orbit, pan and zoom controls.
func (g *Game) handleCameraInput() {
	delta := rl.GetMouseDelta()
	if rl.IsMouseButtonDown(rl.MouseButtonLeft) && !g.overPanel() {
		g.camera.Orbit(-delta.X*0.3, delta.Y*0.3)
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		g.camera.Pan(delta.X, delta.Y)
	}

	if rl.IsKeyDown(rl.KeyLeft) {
		g.camera.Orbit(-1.5, 0)
	}
	if rl.IsKeyDown(rl.KeyRight) {
		g.camera.Orbit(1.5, 0)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.camera.Orbit(0, 1.5)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.camera.Orbit(0, -1.5)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.camera.ZoomBy(1 - wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.camera.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.camera.ZoomBy(1.25)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		g.camera.Reset()
	}
}

func (g *Game) renderCamera() rl.Camera3D {
	return renderer.Camera3D(g.camera)
}
