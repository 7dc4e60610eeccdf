// Package msh reads and writes the binary Gmsh 2 mesh format restricted to
// tetrahedra and triangles.
package msh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"
)

// ElementType is the Gmsh element type tag.
type ElementType uint32

const (
	Triangle    ElementType = 2
	Tetrahedron ElementType = 4
)

// NodesPerElement returns the node count of t, or 0 for unknown types.
func (t ElementType) NodesPerElement() int {
	switch t {
	case Triangle:
		return 3
	case Tetrahedron:
		return 4
	}
	return 0
}

const (
	nodeRecordSize = 4 + 3*8
	maxVersionLen  = 16
)

// decoder walks a byte buffer, tracking the offset for error reports.
type decoder struct {
	buf []byte
	off int
}

func (d *decoder) fail(err error, expected, found string) error {
	return &ParseError{Offset: d.off, Expected: expected, Found: found, Err: err}
}

func (d *decoder) remaining() int { return len(d.buf) - d.off }

func (d *decoder) expect(s string) error {
	if d.remaining() < len(s) {
		return d.fail(ErrUnexpectedEOF, strconv.Quote(s), strconv.Quote(string(d.buf[d.off:])))
	}
	for i := 0; i < len(s); i++ {
		if d.buf[d.off] != s[i] {
			return d.fail(ErrBadValue, strconv.Quote(s[i:i+1]), strconv.Quote(string(d.buf[d.off:d.off+1])))
		}
		d.off++
	}
	return nil
}

// optional consumes b if it is next.
func (d *decoder) optional(b byte) {
	if d.remaining() > 0 && d.buf[d.off] == b {
		d.off++
	}
}

func (d *decoder) u32() (uint32, error) {
	if d.remaining() < 4 {
		return 0, d.fail(ErrUnexpectedEOF, "4-byte integer", fmt.Sprintf("%d bytes", d.remaining()))
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v, nil
}

func (d *decoder) f64() (float64, error) {
	if d.remaining() < 8 {
		return 0, d.fail(ErrUnexpectedEOF, "8-byte float", fmt.Sprintf("%d bytes", d.remaining()))
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(d.buf[d.off:]))
	d.off += 8
	return v, nil
}

// token returns the bytes before end and consumes end.
func (d *decoder) token(end byte, limit int) ([]byte, error) {
	i := bytes.IndexByte(d.buf[d.off:], end)
	if i < 0 {
		return nil, d.fail(ErrUnexpectedEOF, strconv.Quote(string(end)), "end of file")
	}
	if i > limit {
		return nil, d.fail(ErrBadValue, fmt.Sprintf("at most %d bytes before %q", limit, end), fmt.Sprintf("%d bytes", i))
	}
	tok := d.buf[d.off : d.off+i]
	d.off += i + 1
	return tok, nil
}

func (d *decoder) asciiCount() (int, error) {
	start := d.off
	tok, err := d.token('\n', 20)
	if err != nil {
		return 0, err
	}
	n, perr := strconv.ParseUint(string(tok), 10, 32)
	if perr != nil {
		d.off = start
		return 0, d.fail(ErrBadInteger, "decimal count", strconv.Quote(string(tok)))
	}
	return int(n), nil
}

// raw is the decoded content before it is shaped into a typed mesh.
type raw struct {
	version  string
	nodes    []r3.Vec
	elements []int // flat, k node indices per element, 0-based
}

func decode(buf []byte, want ElementType) (*raw, error) {
	d := &decoder{buf: buf}
	k := want.NodesPerElement()

	if err := d.expect("$MeshFormat\n"); err != nil {
		return nil, err
	}
	version, err := d.token(' ', maxVersionLen)
	if err != nil {
		return nil, err
	}
	if len(version) == 0 || bytes.IndexByte(version, '\n') >= 0 {
		return nil, d.fail(ErrBadValue, "version number", strconv.Quote(string(version)))
	}
	if err := d.expect("1 8\n"); err != nil {
		return nil, err
	}
	start := d.off
	one, err := d.u32()
	if err != nil {
		return nil, err
	}
	if one != 1 {
		d.off = start
		return nil, d.fail(ErrBadValue, "binary one", strconv.FormatUint(uint64(one), 10))
	}
	d.optional('\n')
	if err := d.expect("$EndMeshFormat\n"); err != nil {
		return nil, err
	}

	// Nodes
	if err := d.expect("$Nodes\n"); err != nil {
		return nil, err
	}
	numNodes, err := d.asciiCount()
	if err != nil {
		return nil, err
	}
	if numNodes*nodeRecordSize > d.remaining() {
		return nil, d.fail(ErrUnexpectedEOF, fmt.Sprintf("%d node records", numNodes), fmt.Sprintf("%d bytes", d.remaining()))
	}
	out := &raw{version: string(version), nodes: make([]r3.Vec, numNodes)}
	for i := range out.nodes {
		if _, err := d.u32(); err != nil { // node tag, unused
			return nil, err
		}
		var c [3]float64
		for a := range c {
			if c[a], err = d.f64(); err != nil {
				return nil, err
			}
		}
		out.nodes[i] = r3.Vec{X: c[0], Y: c[1], Z: c[2]}
	}
	d.optional('\n')
	if err := d.expect("$EndNodes\n"); err != nil {
		return nil, err
	}

	// Elements
	if err := d.expect("$Elements\n"); err != nil {
		return nil, err
	}
	numElements, err := d.asciiCount()
	if err != nil {
		return nil, err
	}
	for read := 0; read < numElements; {
		start := d.off
		tag, err := d.u32()
		if err != nil {
			return nil, err
		}
		typ := ElementType(tag)
		perElem := typ.NodesPerElement()
		if perElem == 0 {
			d.off = start
			return nil, d.fail(ErrBadElementType, "2 or 4", strconv.FormatUint(uint64(tag), 10))
		}
		count, err := d.u32()
		if err != nil {
			return nil, err
		}
		numTags, err := d.u32()
		if err != nil {
			return nil, err
		}
		if int(count) > numElements-read {
			return nil, d.fail(ErrBadValue, fmt.Sprintf("at most %d elements", numElements-read), strconv.FormatUint(uint64(count), 10))
		}
		if uint64(numTags) > uint64(d.remaining()/4) {
			return nil, d.fail(ErrBadValue, fmt.Sprintf("at most %d tags", d.remaining()/4), strconv.FormatUint(uint64(numTags), 10))
		}
		recordSize := 4 * (1 + int(numTags) + perElem)
		if uint64(count) > uint64(d.remaining())/uint64(recordSize) {
			return nil, d.fail(ErrUnexpectedEOF, fmt.Sprintf("%d element records", count), fmt.Sprintf("%d bytes", d.remaining()))
		}

		if typ != want {
			// Other element kinds (e.g. surface triangles next to a
			// volume mesh) are skipped.
			d.off += int(count) * recordSize
			read += int(count)
			continue
		}
		for e := 0; e < int(count); e++ {
			d.off += 4 * (1 + int(numTags)) // element tag and its tags
			for n := 0; n < k; n++ {
				at := d.off
				id, _ := d.u32()
				if id == 0 || int(id) > numNodes {
					d.off = at
					return nil, d.fail(ErrIndexOutOfRange, fmt.Sprintf("node id in [1, %d]", numNodes), strconv.FormatUint(uint64(id), 10))
				}
				out.elements = append(out.elements, int(id)-1)
			}
		}
		read += int(count)
	}

	d.optional('\n')
	if d.remaining() > 0 {
		if err := d.expect("$EndElements"); err != nil {
			return nil, err
		}
	}
	return out, nil
}
