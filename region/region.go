// Package region describes solid shapes that particles can be seeded into.
package region

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Region is a solid in its own local frame.
type Region interface {
	// Contains reports whether the local-space point lies inside.
	Contains(p r3.Vec) bool
	// Bound returns the local-space axis-aligned bounding box.
	Bound() BoundingBox
}

// BoundingBox is an axis-aligned box.
type BoundingBox struct {
	Min, Max r3.Vec
}

func (b BoundingBox) Size() r3.Vec { return r3.Sub(b.Max, b.Min) }

func (b BoundingBox) Center() r3.Vec { return r3.Scale(0.5, r3.Add(b.Min, b.Max)) }

// Contains reports whether p lies inside b, faces included.
func (b BoundingBox) Contains(p r3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Transform returns the axis-aligned box enclosing b after t.
func (b BoundingBox) Transform(t Similarity) BoundingBox {
	var lo, hi r3.Vec
	mins := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	maxs := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
	for axis := 0; axis < 3; axis++ {
		col := t.Rotation.Col(axis)
		a := r3.Scale(mins[axis], col)
		c := r3.Scale(maxs[axis], col)
		lo = r3.Add(lo, minVec(a, c))
		hi = r3.Add(hi, maxVec(a, c))
	}
	return BoundingBox{
		Min: r3.Add(r3.Scale(t.Scale, lo), t.Translation),
		Max: r3.Add(r3.Scale(t.Scale, hi), t.Translation),
	}
}

func minVec(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

func maxVec(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

// Cube is an axis-aligned box of the given size centered on the origin.
type Cube struct {
	Size r3.Vec
}

func (c Cube) Contains(p r3.Vec) bool {
	h := r3.Scale(0.5, c.Size)
	return math.Abs(p.X) < h.X && math.Abs(p.Y) < h.Y && math.Abs(p.Z) < h.Z
}

func (c Cube) Bound() BoundingBox {
	h := r3.Scale(0.5, c.Size)
	return BoundingBox{Min: r3.Scale(-1, h), Max: h}
}

// Sphere is a ball centered on the origin.
type Sphere struct {
	Radius float64
}

func (s Sphere) Contains(p r3.Vec) bool {
	return r3.Norm(p) < s.Radius
}

func (s Sphere) Bound() BoundingBox {
	r := r3.Vec{X: s.Radius, Y: s.Radius, Z: s.Radius}
	return BoundingBox{Min: r3.Scale(-1, r), Max: r}
}
