// camera.go
package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Vertical look limits.
var (
	MinVerticalAngle = mgl32.DegToRad(-50)
	MaxVerticalAngle = mgl32.DegToRad(60)
)

// Camera is a first person rig: orientation is applied before the offset.
type Camera struct {
	// HOT DATA - read every frame
	HorizontalAngle float32    // radians
	VerticalAngle   float32    // radians, kept in [MinVerticalAngle, MaxVerticalAngle]
	Offset          mgl32.Vec3 // camera position sliders
	Projection      mgl32.Mat4

	// COLD DATA - configuration and input handling
	Fov         float32 // degrees
	Near        float32
	Far         float32
	AspectRatio float32
	Sensitivity float32 // radians per pointer unit
	Locked      bool    // pointer movement ignored while locked
}

func NewCamera(offset mgl32.Vec3, fov, near, far, sensitivity float32, width, height int32) *Camera {
	c := &Camera{
		Offset:      offset,
		Fov:         fov,
		Near:        near,
		Far:         far,
		Sensitivity: sensitivity,
		AspectRatio: aspect(width, height),
	}
	c.UpdateProjection()
	return c
}

func aspect(width, height int32) float32 {
	if height <= 0 {
		return 1
	}
	return float32(width) / float32(height)
}

func (c *Camera) UpdateProjection() {
	c.Projection = mgl32.Perspective(mgl32.DegToRad(c.Fov), c.AspectRatio, c.Near, c.Far)
}

// SetViewportSize updates the aspect ratio from a display size.
func (c *Camera) SetViewportSize(width, height int32) {
	c.AspectRatio = aspect(width, height)
	c.UpdateProjection()
}

// ProcessMouseMovement turns pointer deltas into look angles. Positive dy
// (pointer moving down) looks down.
func (c *Camera) ProcessMouseMovement(dx, dy float32) {
	if c.Locked {
		return
	}
	c.HorizontalAngle -= dx * c.Sensitivity
	c.VerticalAngle = mgl32.Clamp(c.VerticalAngle-dy*c.Sensitivity, MinVerticalAngle, MaxVerticalAngle)
}

// ToggleLock flips the pointer lock and returns the new state.
func (c *Camera) ToggleLock() bool {
	c.Locked = !c.Locked
	return c.Locked
}

// CameraMatrix is Ry(horizontal) · Rx(vertical) · T(offset).
func (c *Camera) CameraMatrix() mgl32.Mat4 {
	return mgl32.HomogRotate3DY(c.HorizontalAngle).
		Mul4(mgl32.HomogRotate3DX(c.VerticalAngle)).
		Mul4(mgl32.Translate3D(c.Offset[0], c.Offset[1], c.Offset[2]))
}

func (c *Camera) GetViewProjection() mgl32.Mat4 {
	return ViewProjection(c.Projection, c.CameraMatrix())
}
