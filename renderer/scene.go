package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph/camera"
	"github.com/pthm-cable/sph/sph"
)

// Camera3D converts an orbit camera to raylib's camera.
func Camera3D(c *camera.Camera) rl.Camera3D {
	eye := c.Eye()
	up := c.Up()
	return rl.Camera3D{
		Position:   rl.NewVector3(eye[0], eye[1], eye[2]),
		Target:     rl.NewVector3(c.Target[0], c.Target[1], c.Target[2]),
		Up:         rl.NewVector3(up[0], up[1], up[2]),
		Fovy:       c.FovY,
		Projection: rl.CameraPerspective,
	}
}

// ContainerRenderer draws the floor and the wall outline of the box.
type ContainerRenderer struct {
	Height     float32
	FloorColor rl.Color
	WallColor  rl.Color
}

// NewContainerRenderer creates a container renderer with walls of the given height.
func NewContainerRenderer(height float32) *ContainerRenderer {
	return &ContainerRenderer{
		Height:     height,
		FloorColor: rl.Color{R: 40, G: 46, B: 54, A: 255},
		WallColor:  rl.Color{R: 90, G: 100, B: 110, A: 255},
	}
}

// Draw renders the container for b. Must be called in 3D mode.
func (c *ContainerRenderer) Draw(b sph.Boundary) {
	side := 2 * b.HalfWidth
	rl.DrawPlane(rl.NewVector3(0, 0, 0), rl.NewVector2(side, side), c.FloorColor)
	rl.DrawCubeWires(rl.NewVector3(0, c.Height/2, 0), side, c.Height, side, c.WallColor)
}
