package systems

import "github.com/pthm-cable/mpm/grid"

// GridM2V converts node momentum to velocity.
func GridM2V(s *State) {
	s.forNodes((*grid.Node).ComputeVelocity)
}
