package msh

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// fixture assembles a mesh file by hand.
type fixture struct {
	bytes.Buffer
}

func (f *fixture) str(s string) *fixture {
	f.WriteString(s)
	return f
}

func (f *fixture) u32(vs ...uint32) *fixture {
	for _, v := range vs {
		_ = binary.Write(f, binary.LittleEndian, v)
	}
	return f
}

func (f *fixture) node(id uint32, x, y, z float64) *fixture {
	f.u32(id)
	for _, c := range []float64{x, y, z} {
		_ = binary.Write(f, binary.LittleEndian, math.Float64bits(c))
	}
	return f
}

func header() *fixture {
	f := &fixture{}
	f.str("$MeshFormat\n2.2 1 8\n").u32(1).str("\n$EndMeshFormat\n")
	return f
}

// unitTet returns a one-tetrahedron mesh with a leading triangle block.
func unitTet() []byte {
	f := header()
	f.str("$Nodes\n4\n")
	f.node(1, 0, 0, 0).node(2, 1, 0, 0).node(3, 0, 1, 0).node(4, 0, 0, 1)
	f.str("\n$EndNodes\n$Elements\n2\n")
	f.u32(uint32(Triangle), 1, 2).u32(1, 0, 0).u32(1, 2, 3)
	f.u32(uint32(Tetrahedron), 1, 0).u32(2).u32(1, 2, 3, 4)
	f.str("\n$EndElements\n")
	return f.Bytes()
}

func TestDecode(t *testing.T) {
	m, err := Decode(unitTet())
	require.NoError(t, err)
	assert.Equal(t, "2.2", m.Version)
	assert.Equal(t, []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}}, m.Nodes)
	assert.Equal(t, [][4]int{{0, 1, 2, 3}}, m.Tetrahedra)
}

func TestDecodeTriangles(t *testing.T) {
	m, err := DecodeTriangles(unitTet())
	require.NoError(t, err)
	assert.Equal(t, [][3]int{{0, 1, 2}}, m.Triangles)
}

func TestDecode_WithoutOptionalNewlines(t *testing.T) {
	f := &fixture{}
	f.str("$MeshFormat\n4.1 1 8\n").u32(1).str("$EndMeshFormat\n")
	f.str("$Nodes\n4\n")
	f.node(1, 0, 0, 0).node(2, 1, 0, 0).node(3, 0, 1, 0).node(4, 0, 0, 1)
	f.str("$EndNodes\n$Elements\n1\n")
	f.u32(uint32(Tetrahedron), 1, 0).u32(1).u32(4, 3, 2, 1)

	m, err := Decode(f.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "4.1", m.Version)
	assert.Equal(t, [][4]int{{3, 2, 1, 0}}, m.Tetrahedra)
}

func TestEncode_RoundTrip(t *testing.T) {
	in := &TetrahedronMesh{
		Nodes:      []r3.Vec{{X: 0.5}, {X: 1, Y: -2}, {Y: 1.25}, {Z: 3}, {X: 1, Y: 1, Z: 1}},
		Tetrahedra: [][4]int{{0, 1, 2, 3}, {1, 2, 3, 4}},
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, in))

	out, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, DefaultVersion, out.Version)
	assert.Equal(t, in.Nodes, out.Nodes)
	assert.Equal(t, in.Tetrahedra, out.Tetrahedra)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tet.msh")
	require.NoError(t, os.WriteFile(path, unitTet(), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, m.Tetrahedra, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.msh"))
	assert.ErrorIs(t, err, ErrCannotReadFile)
}

func TestDecode_Errors(t *testing.T) {
	valid := unitTet()
	nodesAt := bytes.Index(valid, []byte("$Nodes"))

	tests := []struct {
		name   string
		input  []byte
		want   error
		offset int
	}{
		{
			name:   "bad magic",
			input:  []byte("$MeshFormaX\n"),
			want:   ErrBadValue,
			offset: 10,
		},
		{
			name:   "empty",
			input:  nil,
			want:   ErrUnexpectedEOF,
			offset: 0,
		},
		{
			name:   "ascii format",
			input:  []byte("$MeshFormat\n2.2 0 8\n"),
			want:   ErrBadValue,
			offset: len("$MeshFormat\n2.2 "),
		},
		{
			name:   "wrong binary one",
			input:  header().Bytes()[:len("$MeshFormat\n2.2 1 8\n")],
			want:   ErrUnexpectedEOF,
			offset: len("$MeshFormat\n2.2 1 8\n"),
		},
		{
			name: "bad node count",
			input: func() []byte {
				f := header()
				f.str("$Nodes\nfour\n")
				return f.Bytes()
			}(),
			want:   ErrBadInteger,
			offset: nodesAt + len("$Nodes\n"),
		},
		{
			name: "truncated nodes",
			input: func() []byte {
				f := header()
				f.str("$Nodes\n1000\n").node(1, 0, 0, 0)
				return f.Bytes()
			}(),
			want:   ErrUnexpectedEOF,
			offset: nodesAt + len("$Nodes\n1000\n"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.offset, pe.Offset)
		})
	}
}

func TestDecode_WrongBinaryOne(t *testing.T) {
	f := &fixture{}
	f.str("$MeshFormat\n2.2 1 8\n").u32(0x01000000).str("\n$EndMeshFormat\n")
	_, err := Decode(f.Bytes())
	assert.ErrorIs(t, err, ErrBadValue)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "binary one", pe.Expected)
	assert.Equal(t, strconv.Itoa(0x01000000), pe.Found)
}

func meshWithElements(numElements string, block ...uint32) []byte {
	f := header()
	f.str("$Nodes\n4\n")
	f.node(1, 0, 0, 0).node(2, 1, 0, 0).node(3, 0, 1, 0).node(4, 0, 0, 1)
	f.str("\n$EndNodes\n$Elements\n" + numElements + "\n")
	f.u32(block...)
	return f.Bytes()
}

func TestDecode_ElementErrors(t *testing.T) {
	_, err := Decode(meshWithElements("1", 5, 1, 0, 1, 1, 2, 3, 4, 5, 6, 7, 8))
	assert.ErrorIs(t, err, ErrBadElementType)

	_, err = Decode(meshWithElements("1", 4, 1, 0, 1, 1, 2, 3, 5))
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = Decode(meshWithElements("1", 4, 1, 0, 1, 0, 1, 2, 3))
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = Decode(meshWithElements("1", 4, 2, 0, 1, 1, 2, 3, 4, 2, 1, 2, 3, 4))
	assert.ErrorIs(t, err, ErrBadValue)

	_, err = Decode(meshWithElements("2", 4, 1, 0, 1, 1, 2, 3, 4))
	assert.ErrorIs(t, err, ErrUnexpectedEOF)

	_, err = Decode(meshWithElements("x"))
	assert.ErrorIs(t, err, ErrBadInteger)
}

func TestDecode_HugeElementBlock(t *testing.T) {
	// count·record size overflows int when multiplied.
	f := header()
	f.str("$Nodes\n0\n$EndNodes\n$Elements\n536870912\n")
	f.u32(uint32(Triangle), 536870912, 0xFFFFFFFF)
	f.str("\n$EndElements\n")

	var err error
	require.NotPanics(t, func() { _, err = Decode(f.Bytes()) })
	assert.ErrorIs(t, err, ErrBadValue)

	f = header()
	f.str("$Nodes\n0\n$EndNodes\n$Elements\n4294967295\n")
	f.u32(uint32(Triangle), 4294967295, 0)
	f.str("\n$EndElements\n")
	require.NotPanics(t, func() { _, err = Decode(f.Bytes()) })
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestDecode_ElementTags(t *testing.T) {
	// Two tags per element precede the node ids.
	m, err := Decode(meshWithElements("1", 4, 1, 2, 9, 7, 7, 1, 2, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, [][4]int{{0, 1, 2, 3}}, m.Tetrahedra)
}

func TestDecode_TrailingGarbage(t *testing.T) {
	b := append(meshWithElements("1", 4, 1, 0, 1, 1, 2, 3, 4), "\n$EndSomethingElse\n"...)
	_, err := Decode(b)
	assert.ErrorIs(t, err, ErrBadValue)
}
