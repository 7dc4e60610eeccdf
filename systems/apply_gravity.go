package systems

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/grid"
)

// ApplyGravity adds the weight of every node to its force.
func ApplyGravity(s *State) {
	g := s.Gravity
	s.forNodes(func(n *grid.Node) {
		n.Force = r3.Add(n.Force, r3.Scale(n.Mass, g))
	})
}
