// Package renderer draws simulation state with raylib.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/sim"
)

// ParticleRenderer renders particles as small cubes. Must be called
// between BeginMode3D and EndMode3D.
type ParticleRenderer struct {
	Size       float32
	Default    rl.Color // for particles without a Color component
	ShowHidden bool
}

// NewParticleRenderer creates a new particle renderer.
func NewParticleRenderer(size float32) *ParticleRenderer {
	return &ParticleRenderer{
		Size:    size,
		Default: rl.Color{R: 200, G: 200, B: 210, A: 255},
	}
}

// Draw renders the particles of w and returns how many were drawn.
func (r *ParticleRenderer) Draw(w *sim.World) int {
	size := rl.Vector3{X: r.Size, Y: r.Size, Z: r.Size}
	drawn := 0
	w.EachParticle(func(e ecs.Entity) {
		if !r.ShowHidden && w.IsHidden(e) {
			return
		}
		col := r.Default
		if c, ok := w.Color(e); ok {
			col = rl.Color{R: c.R, G: c.G, B: c.B, A: 255}
		}
		rl.DrawCubeV(Vec3(w.Position(e)), size, col)
		drawn++
	})
	return drawn
}

// DrawBox outlines the world box with its corner at the origin.
func DrawBox(size r3.Vec) {
	rl.DrawCubeWiresV(Vec3(r3.Scale(0.5, size)), Vec3(size), rl.DarkGray)
}

// Vec3 converts to raylib's vector type.
func Vec3(v r3.Vec) rl.Vector3 {
	return rl.Vector3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}
