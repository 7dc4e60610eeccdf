package systems

import "github.com/pthm-cable/mpm/grid"

// CleanGrid resets the transient node fields. Boundaries persist.
func CleanGrid(s *State) {
	s.forNodes((*grid.Node).Reset)
}
