package msh

import (
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
)

// TetrahedronMesh is a volume mesh. Element node indices are 0-based.
type TetrahedronMesh struct {
	Version    string
	Nodes      []r3.Vec
	Tetrahedra [][4]int
}

// TriangleMesh is a surface mesh. Element node indices are 0-based.
type TriangleMesh struct {
	Version   string
	Nodes     []r3.Vec
	Triangles [][3]int
}

// Load reads a tetrahedral mesh file.
func Load(path string) (*TetrahedronMesh, error) {
	buf, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(buf)
}

// Parse reads a tetrahedral mesh from r.
func Parse(r io.Reader) (*TetrahedronMesh, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCannotReadFile, err)
	}
	return Decode(buf)
}

// Decode decodes a tetrahedral mesh. Blocks of other known element types
// are skipped.
func Decode(buf []byte) (*TetrahedronMesh, error) {
	r, err := decode(buf, Tetrahedron)
	if err != nil {
		return nil, err
	}
	m := &TetrahedronMesh{Version: r.version, Nodes: r.nodes, Tetrahedra: make([][4]int, len(r.elements)/4)}
	for i := range m.Tetrahedra {
		copy(m.Tetrahedra[i][:], r.elements[4*i:])
	}
	return m, nil
}

// LoadTriangles reads a triangle mesh file.
func LoadTriangles(path string) (*TriangleMesh, error) {
	buf, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeTriangles(buf)
}

// DecodeTriangles decodes a triangle mesh.
func DecodeTriangles(buf []byte) (*TriangleMesh, error) {
	r, err := decode(buf, Triangle)
	if err != nil {
		return nil, err
	}
	m := &TriangleMesh{Version: r.version, Nodes: r.nodes, Triangles: make([][3]int, len(r.elements)/3)}
	for i := range m.Triangles {
		copy(m.Triangles[i][:], r.elements[3*i:])
	}
	return m, nil
}

func readFile(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrCannotReadFile, path, err)
	}
	return buf, nil
}
