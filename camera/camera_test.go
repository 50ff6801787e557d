package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func near(a, b, tol float32) bool {
	return math.Abs(float64(a-b)) <= float64(tol)
}

func TestEyePlacement(t *testing.T) {
	cam := New(1280, 720, mgl32.Vec3{0, 1, 0}, 5, 0, 0, 45)

	eye := cam.Eye()
	if !near(eye[0], 5, 1e-5) || !near(eye[1], 1, 1e-5) || !near(eye[2], 0, 1e-5) {
		t.Errorf("eye = %v, want (5, 1, 0)", eye)
	}

	cam.Orbit(0, 90)
	if cam.Pitch != maxPitch {
		t.Errorf("pitch = %v, want clamped to %v", cam.Pitch, maxPitch)
	}
}

func TestWorldToScreenCentered(t *testing.T) {
	cam := New(1280, 720, mgl32.Vec3{0, 0.8, 0}, 6, 45, 25, 45)

	// Target should map to screen center
	sx, sy, ok := cam.WorldToScreen(cam.Target)
	if !ok {
		t.Fatal("target should be visible")
	}
	if !near(sx, 640, 0.01) || !near(sy, 360, 0.01) {
		t.Errorf("expected screen center (640, 360), got (%f, %f)", sx, sy)
	}
}

func TestWorldToScreenOrientation(t *testing.T) {
	cam := New(800, 600, mgl32.Vec3{}, 5, 30, 20, 60)

	sx, _, ok := cam.WorldToScreen(cam.Target.Add(cam.Right().Mul(0.5)))
	if !ok || sx <= 400 {
		t.Errorf("point to the right projected to x=%v (visible=%v)", sx, ok)
	}

	_, sy, ok := cam.WorldToScreen(cam.Target.Add(mgl32.Vec3{0, 0.5, 0}))
	if !ok || sy >= 300 {
		t.Errorf("point above projected to y=%v (visible=%v)", sy, ok)
	}

	behind := cam.Eye().Sub(cam.Forward().Mul(2))
	if _, _, ok := cam.WorldToScreen(behind); ok {
		t.Error("point behind the camera reported visible")
	}
}

func TestZoomClamped(t *testing.T) {
	cam := New(1280, 720, mgl32.Vec3{}, 5, 0, 0, 45)

	cam.ZoomBy(0.0001)
	if cam.Distance != cam.MinDistance {
		t.Errorf("distance = %v, want min %v", cam.Distance, cam.MinDistance)
	}
	cam.ZoomBy(1e6)
	if cam.Distance != cam.MaxDistance {
		t.Errorf("distance = %v, want max %v", cam.Distance, cam.MaxDistance)
	}
}

func TestPanAndReset(t *testing.T) {
	cam := New(1280, 720, mgl32.Vec3{0, 1, 0}, 5, 10, 15, 45)

	cam.Pan(100, 0)
	if cam.Target == (mgl32.Vec3{0, 1, 0}) {
		t.Fatal("pan did not move the target")
	}
	// Dragging right moves the view target left.
	if d := cam.Target.Sub(mgl32.Vec3{0, 1, 0}).Dot(cam.Right()); d >= 0 {
		t.Errorf("target moved %v along right, want negative", d)
	}

	cam.Orbit(40, -5)
	cam.ZoomBy(2)
	cam.Reset()
	if cam.Target != (mgl32.Vec3{0, 1, 0}) || cam.Distance != 5 || cam.Yaw != 10 || cam.Pitch != 15 {
		t.Errorf("reset pose = %v %v %v %v", cam.Target, cam.Distance, cam.Yaw, cam.Pitch)
	}
}
