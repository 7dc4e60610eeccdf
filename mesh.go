package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/msh"
	"github.com/pthm-cable/mpm/region"
)

func newMeshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mesh <file.msh>",
		Short: "Load a binary tetrahedral mesh and summarize it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mesh, err := msh.Load(args[0])
			if err != nil {
				return err
			}
			reg, err := region.NewTetMesh(mesh.Nodes, mesh.Tetrahedra)
			if err != nil {
				return err
			}

			bb := reg.Bound()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version:     %s\n", mesh.Version)
			fmt.Fprintf(out, "nodes:       %d\n", len(mesh.Nodes))
			fmt.Fprintf(out, "tetrahedra:  %d\n", len(mesh.Tetrahedra))
			fmt.Fprintf(out, "bounds:      %v .. %v\n", bb.Min, bb.Max)
			fmt.Fprintf(out, "volume:      %.6g\n", meshVolume(mesh))
			return nil
		},
	}
}

// meshVolume sums the unsigned tetrahedron volumes.
func meshVolume(m *msh.TetrahedronMesh) float64 {
	var v float64
	for _, t := range m.Tetrahedra {
		p := m.Nodes[t[0]]
		a := r3.Sub(m.Nodes[t[1]], p)
		b := r3.Sub(m.Nodes[t[2]], p)
		c := r3.Sub(m.Nodes[t[3]], p)
		v += math.Abs(r3.Dot(a, r3.Cross(b, c))) / 6
	}
	return v
}
