package systems

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/grid"
)

// P2G rebuilds the scatter plan and transfers particle mass and momentum
// to the grid.
func P2G(s *State) {
	ps := s.Particles
	g := s.Grid
	s.Plan.Build(g, ps.Pos)

	s.Plan.Scatter(s.Pool, func(i int) {
		var st grid.Stencil
		m := ps.Mass[i]
		mv := r3.Scale(m, ps.Vel[i])
		g.Stencil(ps.Pos[i], &st)
		for _, e := range st.Weights() {
			node := &g.Nodes[e.Raw]
			node.Mass += m * e.Weight
			node.Momentum = r3.Add(node.Momentum, r3.Scale(e.Weight, mv))
		}
	})
}
