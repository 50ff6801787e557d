// Package camera provides an orbit camera for viewing the fluid volume.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Pitch stays short of the poles so the view basis never degenerates.
const maxPitch = 89.0

// Camera orbits a target point. Angles are in degrees.
type Camera struct {
	// Target is the point the camera looks at
	Target mgl32.Vec3

	// Distance from target to eye
	Distance float32

	// Yaw around the vertical axis, Pitch above the horizontal plane
	Yaw, Pitch float32

	// Vertical field of view
	FovY float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Distance constraints
	MinDistance, MaxDistance float32

	home pose
}

// pose is the state restored by Reset.
type pose struct {
	target               mgl32.Vec3
	distance, yaw, pitch float32
}

// New creates a camera looking at target from the given pose.
func New(viewportW, viewportH float32, target mgl32.Vec3, distance, yaw, pitch, fovY float32) *Camera {
	c := &Camera{
		Target:      target,
		Distance:    distance,
		Yaw:         yaw,
		Pitch:       clamp(pitch, -maxPitch, maxPitch),
		FovY:        fovY,
		ViewportW:   viewportW,
		ViewportH:   viewportH,
		MinDistance: 0.5,
		MaxDistance: 60,
	}
	c.Distance = clamp(distance, c.MinDistance, c.MaxDistance)
	c.home = pose{target: target, distance: c.Distance, yaw: yaw, pitch: c.Pitch}
	return c
}

// Eye returns the camera position in world coordinates.
func (c *Camera) Eye() mgl32.Vec3 {
	yaw := float64(mgl32.DegToRad(c.Yaw))
	pitch := float64(mgl32.DegToRad(c.Pitch))
	offset := mgl32.Vec3{
		float32(math.Cos(pitch) * math.Cos(yaw)),
		float32(math.Sin(pitch)),
		float32(math.Cos(pitch) * math.Sin(yaw)),
	}
	return c.Target.Add(offset.Mul(c.Distance))
}

// Up is the world up vector used for the view basis.
func (c *Camera) Up() mgl32.Vec3 { return mgl32.Vec3{0, 1, 0} }

// Forward returns the unit view direction.
func (c *Camera) Forward() mgl32.Vec3 {
	return c.Target.Sub(c.Eye()).Normalize()
}

// Right returns the unit vector pointing to the right of the screen.
func (c *Camera) Right() mgl32.Vec3 {
	return c.Forward().Cross(c.Up()).Normalize()
}

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye(), c.Target, c.Up())
}

// Projection returns the perspective matrix for the current viewport.
func (c *Camera) Projection() mgl32.Mat4 {
	aspect := float32(1)
	if c.ViewportH > 0 {
		aspect = c.ViewportW / c.ViewportH
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, 0.05, 200)
}

// WorldToScreen projects a world point to pixel coordinates. visible is
// false for points behind the camera or outside the view frustum.
func (c *Camera) WorldToScreen(p mgl32.Vec3) (sx, sy float32, visible bool) {
	clip := c.Projection().Mul4(c.View()).Mul4x1(p.Vec4(1))
	if clip[3] <= 0 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip[3])
	sx = (ndc[0] + 1) / 2 * c.ViewportW
	sy = (1 - ndc[1]) / 2 * c.ViewportH
	visible = absf(ndc[0]) <= 1 && absf(ndc[1]) <= 1 && absf(ndc[2]) <= 1
	return sx, sy, visible
}

// Orbit rotates the camera around the target by the given degrees.
func (c *Camera) Orbit(dyaw, dpitch float32) {
	c.Yaw = float32(math.Mod(float64(c.Yaw+dyaw), 360))
	c.Pitch = clamp(c.Pitch+dpitch, -maxPitch, maxPitch)
}

// Pan moves the target in the view plane. dx and dy are in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	if c.ViewportH <= 0 {
		return
	}
	// World units per pixel at the target distance.
	scale := 2 * c.Distance * float32(math.Tan(float64(mgl32.DegToRad(c.FovY))/2)) / c.ViewportH
	right := c.Right()
	up := right.Cross(c.Forward())
	c.Target = c.Target.Sub(right.Mul(dx * scale)).Add(up.Mul(dy * scale))
}

// ZoomBy multiplies the orbit distance by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.Distance = clamp(c.Distance*factor, c.MinDistance, c.MaxDistance)
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Reset returns the camera to the pose it was created with.
func (c *Camera) Reset() {
	c.Target = c.home.target
	c.Distance = c.home.distance
	c.Yaw = c.home.yaw
	c.Pitch = c.home.pitch
}

// absf returns the absolute value of a float32.
func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
