package sim

import "github.com/pthm-cable/mpm/grid"

// PutBoundary sets the boundary of every node for which f reports true.
// Other nodes keep their boundary.
func (w *World) PutBoundary(f func(grid.Index) (grid.Boundary, bool)) {
	g := w.grid
	for raw := range g.Nodes {
		if b, ok := f(g.IndexOf(raw)); ok {
			g.Nodes[raw].Boundary = b
		}
	}
}

// PutWrappingBoundary sets the nodes within thickness of the box walls to
// the boundary f returns for their wall.
func (w *World) PutWrappingBoundary(thickness float64, f func(grid.Wall) grid.Boundary) {
	n := w.grid.WallLayers(thickness)
	w.PutBoundary(func(i grid.Index) (grid.Boundary, bool) {
		wall, ok := w.grid.WallOf(i, n)
		if !ok {
			return grid.Boundary{}, false
		}
		return f(wall), true
	})
}

// PutStickyBoundary makes the walls stop all motion.
func (w *World) PutStickyBoundary(thickness float64) {
	w.PutWrappingBoundary(thickness, func(grid.Wall) grid.Boundary {
		return grid.StickyBoundary()
	})
}

// PutSlidingBoundary removes the wall-normal velocity.
func (w *World) PutSlidingBoundary(thickness float64) {
	w.PutWrappingBoundary(thickness, func(wall grid.Wall) grid.Boundary {
		return grid.SlidingBoundary(wall.Normal())
	})
}

// PutFrictionBoundary applies Coulomb friction with coefficient mu.
func (w *World) PutFrictionBoundary(thickness, mu float64) {
	w.PutWrappingBoundary(thickness, func(wall grid.Wall) grid.Boundary {
		return grid.FrictionBoundary(wall.Normal(), mu)
	})
}

// PutDiminishBoundary removes the wall-normal velocity and scales the rest
// by factor.
func (w *World) PutDiminishBoundary(thickness, factor float64) {
	w.PutWrappingBoundary(thickness, func(wall grid.Wall) grid.Boundary {
		return grid.DiminishBoundary(wall.Normal(), factor)
	})
}
