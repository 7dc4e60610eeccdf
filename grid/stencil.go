package grid

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/linalg"
)

// StencilSize is the number of nodes touched by one particle.
const StencilSize = 27

// Weight is one node contribution of the quadratic B-spline kernel.
type Weight struct {
	Index  Index
	Raw    int
	Weight float64
	Grad   r3.Vec
}

// Stencil holds the in-grid nodes around a particle. It is a fixed-size
// value so the hot loops never allocate.
type Stencil struct {
	Base    Index
	N       int
	Entries [StencilSize]Weight
}

// Weights returns the populated entries.
func (s *Stencil) Weights() []Weight {
	return s.Entries[:s.N]
}

// Weights1D evaluates the quadratic B-spline along one axis for the
// coordinate x expressed in cells. It returns the first node and the three
// weights with their derivatives (in cell units).
func Weights1D(x float64) (base int, w, dw [3]float64) {
	b := math.Floor(x - 0.5)
	d0 := x - b
	z := 1.5 - d0
	d1 := d0 - 1
	d2 := 1 - d1
	zz := 1.5 - d2

	w = [3]float64{0.5 * z * z, 0.75 - d1*d1, 0.5 * zz * zz}
	dw = [3]float64{-z, -2 * d1, zz}
	return int(b), w, dw
}

// BaseNode returns the first stencil node of pos.
func (g *Grid) BaseNode(pos r3.Vec) Index {
	return Index{
		X: int(math.Floor(pos.X/g.H - 0.5)),
		Y: int(math.Floor(pos.Y/g.H - 0.5)),
		Z: int(math.Floor(pos.Z/g.H - 0.5)),
	}
}

// Stencil fills s with the weights and gradients of every in-grid node
// around pos, iterating x fastest, then y, then z. It panics with a
// *linalg.NumericalError when pos or any weight is not finite.
func (g *Grid) Stencil(pos r3.Vec, s *Stencil) {
	if !linalg.IsFiniteVec(pos) {
		linalg.Fail("interpolation", "non-finite particle position %v", pos)
	}
	inv := 1 / g.H
	bx, wx, dwx := Weights1D(pos.X * inv)
	by, wy, dwy := Weights1D(pos.Y * inv)
	bz, wz, dwz := Weights1D(pos.Z * inv)

	s.Base = Index{X: bx, Y: by, Z: bz}
	s.N = 0
	for k := 0; k < 3; k++ {
		z := bz + k
		if z < 0 || z >= g.Dim.Z {
			continue
		}
		for j := 0; j < 3; j++ {
			y := by + j
			if y < 0 || y >= g.Dim.Y {
				continue
			}
			for i := 0; i < 3; i++ {
				x := bx + i
				if x < 0 || x >= g.Dim.X {
					continue
				}
				e := &s.Entries[s.N]
				e.Index = Index{X: x, Y: y, Z: z}
				e.Raw = x + g.Dim.X*(y+g.Dim.Y*z)
				e.Weight = wx[i] * wy[j] * wz[k]
				e.Grad = r3.Vec{
					X: dwx[i] * inv * wy[j] * wz[k],
					Y: wx[i] * dwy[j] * inv * wz[k],
					Z: wx[i] * wy[j] * dwz[k] * inv,
				}
				if math.IsNaN(e.Weight) || !linalg.IsFiniteVec(e.Grad) {
					linalg.Fail("interpolation", "NaN weight at node %v for position %v", e.Index, pos)
				}
				s.N++
			}
		}
	}
}
