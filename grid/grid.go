// Package grid implements the Eulerian background grid the particles
// exchange mass, momentum and force through.
package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidGrid is returned for non-positive spacing or an empty lattice.
var ErrInvalidGrid = errors.New("invalid grid")

// Index addresses a node by its lattice coordinates.
type Index struct {
	X, Y, Z int
}

// Grid is a fixed lattice of nodes with spacing H. It is allocated once and
// never resized.
type Grid struct {
	Size  r3.Vec
	H     float64
	Dim   Index
	Nodes []Node
}

// New allocates a grid covering size with spacing h. The node count per
// axis is floor(size/h).
func New(size r3.Vec, h float64) (*Grid, error) {
	if !(h > 0) {
		return nil, fmt.Errorf("%w: spacing %v", ErrInvalidGrid, h)
	}
	dim := Index{
		X: int(math.Floor(size.X / h)),
		Y: int(math.Floor(size.Y / h)),
		Z: int(math.Floor(size.Z / h)),
	}
	if dim.X < 1 || dim.Y < 1 || dim.Z < 1 {
		return nil, fmt.Errorf("%w: size %v gives dimension %v", ErrInvalidGrid, size, dim)
	}
	return &Grid{
		Size:  size,
		H:     h,
		Dim:   dim,
		Nodes: make([]Node, dim.X*dim.Y*dim.Z),
	}, nil
}

// Len returns the node count.
func (g *Grid) Len() int { return len(g.Nodes) }

// Raw maps a lattice index to its position in Nodes (x fastest).
func (g *Grid) Raw(i Index) int {
	return i.X + g.Dim.X*(i.Y+g.Dim.Y*i.Z)
}

// IndexOf is the inverse of Raw.
func (g *Grid) IndexOf(raw int) Index {
	x := raw % g.Dim.X
	yz := raw / g.Dim.X
	return Index{X: x, Y: yz % g.Dim.Y, Z: yz / g.Dim.Y}
}

// Contains reports whether i lies inside the lattice.
func (g *Grid) Contains(i Index) bool {
	return i.X >= 0 && i.Y >= 0 && i.Z >= 0 &&
		i.X < g.Dim.X && i.Y < g.Dim.Y && i.Z < g.Dim.Z
}

// At returns the node at i. i must be inside the lattice.
func (g *Grid) At(i Index) *Node {
	return &g.Nodes[g.Raw(i)]
}

// NodePosition returns the world position of node i.
func (g *Grid) NodePosition(i Index) r3.Vec {
	return r3.Vec{X: float64(i.X) * g.H, Y: float64(i.Y) * g.H, Z: float64(i.Z) * g.H}
}
