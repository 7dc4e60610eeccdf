package region

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrEmptyMesh is returned when a mesh has no tetrahedra.
var ErrEmptyMesh = errors.New("mesh has no tetrahedra")

// maxCellsPerAxis bounds the spatial hash resolution.
const maxCellsPerAxis = 64

type tetra struct {
	p [4]r3.Vec
}

// contains reports whether p lies inside the tetrahedron, faces included.
func (t *tetra) contains(p r3.Vec) bool {
	return sameSide(t.p[0], t.p[1], t.p[2], t.p[3], p) &&
		sameSide(t.p[1], t.p[2], t.p[3], t.p[0], p) &&
		sameSide(t.p[2], t.p[3], t.p[0], t.p[1], p) &&
		sameSide(t.p[3], t.p[0], t.p[1], t.p[2], p)
}

// sameSide reports whether p is on the same side of plane (a, b, c) as d.
func sameSide(a, b, c, d, p r3.Vec) bool {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	dd := r3.Dot(n, r3.Sub(d, a))
	dp := r3.Dot(n, r3.Sub(p, a))
	return dd*dp >= 0
}

func (t *tetra) bound() BoundingBox {
	b := BoundingBox{Min: t.p[0], Max: t.p[0]}
	for _, q := range t.p[1:] {
		b.Min = minVec(b.Min, q)
		b.Max = maxVec(b.Max, q)
	}
	return b
}

// TetMesh is a solid made of tetrahedra. Containment queries go through a
// uniform grid over the mesh bound whose cells list the tetrahedra
// overlapping them.
type TetMesh struct {
	tetras []tetra
	bb     BoundingBox

	dims     [3]int
	cellSize r3.Vec
	cells    [][]int32 // flat grid of tetrahedron lists
}

// NewTetMesh builds a mesh from node positions and 0-based tetrahedron
// node indices.
func NewTetMesh(nodes []r3.Vec, tets [][4]int) (*TetMesh, error) {
	if len(tets) == 0 {
		return nil, ErrEmptyMesh
	}

	m := &TetMesh{tetras: make([]tetra, len(tets))}
	for i, tet := range tets {
		for k, idx := range tet {
			if idx < 0 || idx >= len(nodes) {
				return nil, fmt.Errorf("tetrahedron %d: node index %d out of range [0, %d)", i, idx, len(nodes))
			}
			m.tetras[i].p[k] = nodes[idx]
		}
	}

	m.bb = m.tetras[0].bound()
	for i := range m.tetras[1:] {
		b := m.tetras[i+1].bound()
		m.bb.Min = minVec(m.bb.Min, b.Min)
		m.bb.Max = maxVec(m.bb.Max, b.Max)
	}

	m.buildCells()
	return m, nil
}

// buildCells sizes the grid for roughly one tetrahedron per cell.
func (m *TetMesh) buildCells() {
	size := m.bb.Size()
	extent := [3]float64{size.X, size.Y, size.Z}

	vol := 1.0
	for _, e := range extent {
		vol *= math.Max(e, 1e-12)
	}
	cell := math.Cbrt(vol / float64(len(m.tetras)))

	var cs [3]float64
	for a, e := range extent {
		n := 1
		if cell > 0 {
			n = int(math.Ceil(e / cell))
		}
		n = min(max(n, 1), maxCellsPerAxis)
		m.dims[a] = n
		cs[a] = e / float64(n)
		if cs[a] <= 0 {
			cs[a] = 1
		}
	}
	m.cellSize = r3.Vec{X: cs[0], Y: cs[1], Z: cs[2]}
	m.cells = make([][]int32, m.dims[0]*m.dims[1]*m.dims[2])

	for i := range m.tetras {
		b := m.tetras[i].bound()
		lo := m.cellCoords(b.Min)
		hi := m.cellCoords(b.Max)
		for z := lo[2]; z <= hi[2]; z++ {
			for y := lo[1]; y <= hi[1]; y++ {
				for x := lo[0]; x <= hi[0]; x++ {
					idx := m.cellIndex(x, y, z)
					m.cells[idx] = append(m.cells[idx], int32(i))
				}
			}
		}
	}
}

func (m *TetMesh) cellCoords(p r3.Vec) [3]int {
	rel := r3.Sub(p, m.bb.Min)
	c := [3]int{
		int(rel.X / m.cellSize.X),
		int(rel.Y / m.cellSize.Y),
		int(rel.Z / m.cellSize.Z),
	}
	for a := range c {
		c[a] = min(max(c[a], 0), m.dims[a]-1)
	}
	return c
}

func (m *TetMesh) cellIndex(x, y, z int) int {
	return x + m.dims[0]*(y+m.dims[1]*z)
}

// Len returns the number of tetrahedra.
func (m *TetMesh) Len() int { return len(m.tetras) }

func (m *TetMesh) Contains(p r3.Vec) bool {
	if !m.bb.Contains(p) {
		return false
	}
	c := m.cellCoords(p)
	for _, i := range m.cells[m.cellIndex(c[0], c[1], c[2])] {
		if m.tetras[i].contains(p) {
			return true
		}
	}
	return false
}

func (m *TetMesh) Bound() BoundingBox { return m.bb }
