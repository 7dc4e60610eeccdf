package msh

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"
)

// DefaultVersion is written by Encode when the mesh has none.
const DefaultVersion = "2.2"

// Encode writes m in the binary format Decode reads, as a single
// tetrahedron block without tags.
func Encode(w io.Writer, m *TetrahedronMesh) error {
	version := m.Version
	if version == "" {
		version = DefaultVersion
	}

	buf := make([]byte, 0, 128+len(m.Nodes)*nodeRecordSize+len(m.Tetrahedra)*20)
	buf = append(buf, "$MeshFormat\n"+version+" 1 8\n"...)
	buf = binary.LittleEndian.AppendUint32(buf, 1)
	buf = append(buf, "\n$EndMeshFormat\n$Nodes\n"...)
	buf = strconv.AppendInt(buf, int64(len(m.Nodes)), 10)
	buf = append(buf, '\n')
	for i, n := range m.Nodes {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(i+1))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(n.X))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(n.Y))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(n.Z))
	}
	buf = append(buf, "\n$EndNodes\n$Elements\n"...)
	buf = strconv.AppendInt(buf, int64(len(m.Tetrahedra)), 10)
	buf = append(buf, '\n')
	if len(m.Tetrahedra) > 0 {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(Tetrahedron))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(m.Tetrahedra)))
		buf = binary.LittleEndian.AppendUint32(buf, 0)
		for i, tet := range m.Tetrahedra {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(i+1))
			for _, id := range tet {
				buf = binary.LittleEndian.AppendUint32(buf, uint32(id+1))
			}
		}
	}
	buf = append(buf, "\n$EndElements\n"...)

	_, err := w.Write(buf)
	return err
}
