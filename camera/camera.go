// Package camera provides an orbit camera for viewing the simulation box.
package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Pitch stays short of the poles so the view basis never degenerates.
const maxPitch = math.Pi/2 - 0.01

// Camera orbits a target point. Yaw turns about the world y axis, pitch
// tilts toward it.
type Camera struct {
	// Target is the orbit center in world coordinates
	Target r3.Vec

	// Angles in radians
	Yaw, Pitch float64

	// Distance from target
	Distance float64

	// Distance constraints
	MinDistance, MaxDistance float64

	// Pixels per radian of orbit, used by Orbit
	Sensitivity float64

	home Camera
}

// New creates a camera that frames a box of the given size with its
// corner at the origin.
func New(size r3.Vec) *Camera {
	c := &Camera{Sensitivity: 200}
	c.Frame(size)
	return c
}

// Frame centers the camera on a box at the origin and backs off far
// enough to see all of it. The result becomes the Reset position.
func (c *Camera) Frame(size r3.Vec) {
	extent := r3.Norm(size)
	c.Target = r3.Scale(0.5, size)
	c.Yaw = math.Pi / 6
	c.Pitch = math.Pi / 8
	c.Distance = 1.5 * extent
	c.MinDistance = 0.05 * extent
	c.MaxDistance = 10 * extent

	c.home = *c
	c.home.home = Camera{}
}

// Position returns the eye position in world coordinates.
func (c *Camera) Position() r3.Vec {
	return r3.Add(c.Target, r3.Scale(-c.Distance, c.Forward()))
}

// Forward returns the unit view direction.
func (c *Camera) Forward() r3.Vec {
	cp := math.Cos(c.Pitch)
	return r3.Vec{
		X: -cp * math.Sin(c.Yaw),
		Y: -math.Sin(c.Pitch),
		Z: -cp * math.Cos(c.Yaw),
	}
}

// Basis returns the right and up vectors of the view plane.
func (c *Camera) Basis() (right, up r3.Vec) {
	f := c.Forward()
	right = r3.Unit(r3.Cross(f, r3.Vec{Y: 1}))
	up = r3.Cross(right, f)
	return right, up
}

// Orbit rotates the camera by a mouse drag of (dx, dy) pixels.
func (c *Camera) Orbit(dx, dy float64) {
	c.Yaw -= dx / c.Sensitivity
	c.Yaw = math.Mod(c.Yaw, 2*math.Pi)
	c.Pitch = clamp(c.Pitch+dy/c.Sensitivity, -maxPitch, maxPitch)
}

// Pan moves the target within the view plane. The drag is scaled by the
// distance so the scene follows the cursor roughly.
func (c *Camera) Pan(dx, dy float64) {
	right, up := c.Basis()
	scale := c.Distance / (2 * c.Sensitivity)
	c.Target = r3.Add(c.Target, r3.Add(r3.Scale(-dx*scale, right), r3.Scale(dy*scale, up)))
}

// SetDistance sets the orbit distance, clamped to min/max.
func (c *Camera) SetDistance(d float64) {
	c.Distance = clamp(d, c.MinDistance, c.MaxDistance)
}

// ZoomBy divides the distance by factor; factors above 1 move closer.
func (c *Camera) ZoomBy(factor float64) {
	if factor <= 0 {
		return
	}
	c.SetDistance(c.Distance / factor)
}

// Reset returns the camera to the last framed position.
func (c *Camera) Reset() {
	sens := c.Sensitivity
	home := c.home
	*c = home
	c.home = home
	c.Sensitivity = sens
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
