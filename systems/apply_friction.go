package systems

import "github.com/pthm-cable/mpm/grid"

// ApplyFriction adds boundary friction on Friction nodes.
func ApplyFriction(s *State) {
	dt := s.DT
	s.forNodes(func(n *grid.Node) {
		n.ApplyFriction(dt)
	})
}
