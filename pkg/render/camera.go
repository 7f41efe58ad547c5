package render

import (
	"math"

	"github.com/taigrr/glint/pkg/math3d"
)

// Camera is a look-at camera with a perspective projection.
type Camera struct {
	// Placement in world space
	Position math3d.Vec3
	Target   math3d.Vec3
	Up       math3d.Vec3

	// Projection parameters
	FOV         float64 // Vertical field of view in radians
	AspectRatio float64 // Width / Height
	Near        float64 // Near clipping plane
	Far         float64 // Far clipping plane

	// Cached matrices (computed on demand)
	viewMatrix math3d.Mat4
	projMatrix math3d.Mat4
	viewDirty  bool
	projDirty  bool
}

// NewCamera creates a camera at (0, 0, 10) looking at the origin with a
// 45° field of view and clip planes at 0.1 and 50.
func NewCamera() *Camera {
	return &Camera{
		Position:    math3d.V3(0, 0, 10),
		Target:      math3d.V3(0, 0, 0),
		Up:          math3d.V3(0, 1, 0),
		FOV:         math3d.Radians(45),
		AspectRatio: 1,
		Near:        0.1,
		Far:         50,
		viewDirty:   true,
		projDirty:   true,
	}
}

// SetPosition sets the camera position.
func (c *Camera) SetPosition(pos math3d.Vec3) {
	c.Position = pos
	c.viewDirty = true
}

// LookAt points the camera at target.
func (c *Camera) LookAt(target math3d.Vec3) {
	c.Target = target
	c.viewDirty = true
}

// SetUp sets the up vector.
func (c *Camera) SetUp(up math3d.Vec3) {
	c.Up = up
	c.viewDirty = true
}

// SetFOV sets the vertical field of view (in radians).
func (c *Camera) SetFOV(fov float64) {
	c.FOV = fov
	c.projDirty = true
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float64) {
	c.AspectRatio = aspect
	c.projDirty = true
}

// SetClipPlanes sets the near and far clipping planes.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.Near = near
	c.Far = far
	c.projDirty = true
}

// Orbit rotates the camera position about the target's vertical axis by
// yaw radians, keeping the distance to the target.
func (c *Camera) Orbit(yaw float64) {
	offset := c.Position.Sub(c.Target)
	s, co := math.Sin(yaw), math.Cos(yaw)
	c.Position = c.Target.Add(math3d.V3(
		offset.X*co+offset.Z*s,
		offset.Y,
		-offset.X*s+offset.Z*co,
	))
	c.viewDirty = true
}

// ViewMatrix returns the view matrix.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	if c.viewDirty {
		c.viewMatrix = math3d.LookAt(c.Position, c.Target, c.Up)
		c.viewDirty = false
	}
	return c.viewMatrix
}

// ProjectionMatrix returns the projection matrix.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	if c.projDirty {
		c.projMatrix = math3d.Perspective(c.FOV, c.AspectRatio, c.Near, c.Far)
		c.projDirty = false
	}
	return c.projMatrix
}
