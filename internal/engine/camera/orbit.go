// Package camera places a viewer in a stage so screen clicks can be turned
// into world-space pick rays.
package camera

import (
	gomath "math"

	"github.com/Faultbox/animdirector/pkg/math"
)

var worldUp = math.Vec3{Y: 1}

// Pitch limits keep the view from flipping over the poles.
const (
	minPitch    = -1.5
	maxPitch    = 1.5
	minDistance = 0.1
	maxDistance = 1000
)

// OrbitCamera orbits a center point and looks at it.
type OrbitCamera struct {
	Center   math.Vec3
	Distance float64
	Pitch    float64 // radians above the horizon
	Yaw      float64 // radians around +Y; 0 places the camera on +Z
	FOV      float64 // vertical field of view, radians
	Width    float64 // viewport, pixels
	Height   float64
}

// NewOrbitCamera creates an orbit camera with default settings.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance: 10,
		Pitch:    0.5,
		FOV:      gomath.Pi / 3,
		Width:    1280,
		Height:   720,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	cp, sp := gomath.Cos(c.Pitch), gomath.Sin(c.Pitch)
	return c.Center.Add(math.Vec3{
		X: c.Distance * cp * gomath.Sin(c.Yaw),
		Y: c.Distance * sp,
		Z: c.Distance * cp * gomath.Cos(c.Yaw),
	})
}

// Forward returns the unit view direction.
func (c *OrbitCamera) Forward() math.Vec3 {
	return c.Center.Sub(c.Position()).Normalize()
}

func (c *OrbitCamera) basis(forward math.Vec3) (right, up math.Vec3) {
	right = forward.Cross(worldUp)
	if right.Length() < 1e-12 {
		// Looking straight up or down.
		right = math.Vec3{X: gomath.Cos(c.Yaw), Z: -gomath.Sin(c.Yaw)}
	}
	right = right.Normalize()
	return right, right.Cross(forward)
}

// ScreenRay returns the ray through pixel (x, y), origin at the camera.
// Pixel (0, 0) is the top-left corner of the viewport.
func (c *OrbitCamera) ScreenRay(x, y float64) (origin, dir math.Vec3) {
	forward := c.Forward()
	right, up := c.basis(forward)

	ndcX, ndcY, aspect := 0.0, 0.0, 1.0
	if c.Width > 0 && c.Height > 0 {
		ndcX = 2*x/c.Width - 1
		ndcY = 1 - 2*y/c.Height
		aspect = c.Width / c.Height
	}
	tanHalf := gomath.Tan(c.FOV / 2)

	dir = forward.
		Add(right.Scale(ndcX * tanHalf * aspect)).
		Add(up.Scale(ndcY * tanHalf)).
		Normalize()
	return c.Position(), dir
}

// HandleDrag rotates the camera by a mouse drag in pixels.
func (c *OrbitCamera) HandleDrag(dx, dy, sensitivity float64) {
	c.Yaw -= dx * sensitivity
	c.Pitch = clamp(c.Pitch+dy*sensitivity, minPitch, maxPitch)
}

// HandleZoom scales the distance by a scroll delta.
func (c *OrbitCamera) HandleZoom(delta float64) {
	c.Distance = clamp(c.Distance*(1-delta*0.1), minDistance, maxDistance)
}

// FitToBounds centers the camera on a box and backs off until the box fits
// the vertical field of view.
func (c *OrbitCamera) FitToBounds(lo, hi math.Vec3) {
	c.Center = lo.Add(hi).Scale(0.5)
	radius := hi.Sub(lo).Length() / 2
	if radius == 0 {
		radius = 1
	}
	half := c.FOV / 2
	if half <= 0 {
		half = gomath.Pi / 6
	}
	c.Distance = radius / gomath.Sin(half)
}

func clamp(v, lo, hi float64) float64 {
	return gomath.Max(lo, gomath.Min(hi, v))
}
