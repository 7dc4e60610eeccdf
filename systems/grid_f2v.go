package systems

import "github.com/pthm-cable/mpm/grid"

// GridF2V integrates node forces into the final node velocity.
func GridF2V(s *State) {
	dt := s.DT
	s.forNodes(func(n *grid.Node) {
		n.ApplyForce(dt)
	})
}
