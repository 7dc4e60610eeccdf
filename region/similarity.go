package region

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/linalg"
)

// Similarity maps local points to world space as p ↦ Scale·R·p + Translation.
type Similarity struct {
	Scale       float64
	Rotation    linalg.Mat3
	Translation r3.Vec
}

// Identity returns the identity transform.
func Identity() Similarity {
	return Similarity{Scale: 1, Rotation: linalg.Identity()}
}

// Translation returns a pure translation.
func Translation(t r3.Vec) Similarity {
	s := Identity()
	s.Translation = t
	return s
}

// NewSimilarity builds a transform from a translation, Euler angles in
// radians (applied about x, then y, then z) and a uniform scale.
func NewSimilarity(translation, euler r3.Vec, scale float64) Similarity {
	return Similarity{
		Scale:       scale,
		Rotation:    EulerRotation(euler),
		Translation: translation,
	}
}

// EulerRotation returns Rz·Ry·Rx.
func EulerRotation(euler r3.Vec) linalg.Mat3 {
	sx, cx := math.Sincos(euler.X)
	sy, cy := math.Sincos(euler.Y)
	sz, cz := math.Sincos(euler.Z)
	rx := linalg.Mat3{{1, 0, 0}, {0, cx, -sx}, {0, sx, cx}}
	ry := linalg.Mat3{{cy, 0, sy}, {0, 1, 0}, {-sy, 0, cy}}
	rz := linalg.Mat3{{cz, -sz, 0}, {sz, cz, 0}, {0, 0, 1}}
	return rz.Mul(ry).Mul(rx)
}

// Apply maps a local point to world space.
func (s Similarity) Apply(p r3.Vec) r3.Vec {
	return r3.Add(r3.Scale(s.Scale, s.Rotation.MulVec(p)), s.Translation)
}

// Inverse maps a world point back to local space.
func (s Similarity) Inverse(p r3.Vec) r3.Vec {
	return r3.Scale(1/s.Scale, s.Rotation.Transpose().MulVec(r3.Sub(p, s.Translation)))
}
