package systems

import "github.com/pthm-cable/mpm/grid"

// GridSetBoundary enforces each node's boundary condition on its velocity.
func GridSetBoundary(s *State) {
	s.forNodes((*grid.Node).SetBoundaryVelocity)
}
