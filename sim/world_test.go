package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/components"
	"github.com/pthm-cable/mpm/grid"
	"github.com/pthm-cable/mpm/linalg"
	"github.com/pthm-cable/mpm/systems"
)

func newTestWorld(t *testing.T, size r3.Vec) *World {
	t.Helper()
	opts := DefaultOptions()
	opts.Size = size
	opts.Workers = 4
	opts.Logger = quietLogger()
	w, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func totalMass(w *World) float64 {
	var m float64
	w.EachParticle(func(e ecs.Entity) { m += w.Mass(e) })
	return m
}

func TestNew_InvalidOptions(t *testing.T) {
	for name, mutate := range map[string]func(*Options){
		"zero dt":      func(o *Options) { o.DT = 0 },
		"zero h":       func(o *Options) { o.H = 0 },
		"tiny size":    func(o *Options) { o.Size = r3.Vec{X: 0.01, Y: 1, Z: 1} },
		"zero density": func(o *Options) { o.ParticleDensity = 0 },
		"pic ratio":    func(o *Options) { o.PICRatio = 1.5 },
	} {
		t.Run(name, func(t *testing.T) {
			opts := DefaultOptions()
			mutate(&opts)
			_, err := New(opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestWorld_Accessors(t *testing.T) {
	w := newTestWorld(t, r3.Vec{X: 1, Y: 1, Z: 1})
	n := int(math.Floor(1 / 0.02))
	assert.Equal(t, grid.Index{X: n, Y: n, Z: n}, w.Dimension())
	assert.Equal(t, 0.02, w.H())
	assert.Equal(t, r3.Vec{X: 1, Y: 1, Z: 1}, w.Size())
	assert.Equal(t, 1e-3, w.DT())
	w.SetDT(5e-4)
	assert.Equal(t, 5e-4, w.DT())
	assert.Equal(t, 0, w.NumParticles())
	assert.Equal(t, uint64(0), w.StepCount())
}

func TestPutBall(t *testing.T) {
	w := newTestWorld(t, r3.Vec{X: 1, Y: 1, Z: 1})
	center := r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}

	b := w.PutBall(center, 0.1, 10)
	require.Greater(t, b.Len(), 0)
	assert.Equal(t, b.Len(), w.NumParticles())

	var mass float64
	radius := w.H() / 2
	for _, e := range b.Entities() {
		assert.Less(t, r3.Norm(r3.Sub(w.Position(e), center)), 0.1)
		assert.InDelta(t, radius*radius*radius, w.Volume(e), 1e-15)
		assert.Equal(t, r3.Vec{}, w.Velocity(e))
		mass += w.Mass(e)
	}
	assert.InDelta(t, 10.0, mass, 1e-9)
}

func TestPutCube(t *testing.T) {
	w := newTestWorld(t, r3.Vec{X: 1, Y: 1, Z: 1})
	min, max := r3.Vec{X: 0.2, Y: 0.3, Z: 0.4}, r3.Vec{X: 0.3, Y: 0.35, Z: 0.6}

	b := w.PutCube(min, max, 2)
	require.Greater(t, b.Len(), 0)
	for _, e := range b.Entities() {
		p := w.Position(e)
		assert.True(t, p.X > min.X && p.X < max.X, "x %v", p.X)
		assert.True(t, p.Y > min.Y && p.Y < max.Y, "y %v", p.Y)
		assert.True(t, p.Z > min.Z && p.Z < max.Z, "z %v", p.Z)
	}
	assert.InDelta(t, 2.0, totalMass(w), 1e-9)
}

func TestPutRegion_EmptyRegion(t *testing.T) {
	w := newTestWorld(t, r3.Vec{X: 1, Y: 1, Z: 1})
	b := w.PutBall(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 0, 1)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Entities())
	assert.Panics(t, func() { b.First() })
}

func TestBatch_Setters(t *testing.T) {
	w := newTestWorld(t, r3.Vec{X: 1, Y: 1, Z: 1})
	w.PutParticle(r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}, 1)
	b := w.PutBall(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 0.05, 1).
		WithVelocity(r3.Vec{X: 2}).
		WithDeformation(components.NewSnow()).
		WithColor(components.Color{R: 255})

	var seen int
	b.Each(func(w *World, e ecs.Entity) {
		seen++
		assert.Equal(t, r3.Vec{X: 2}, w.Velocity(e))
		d, ok := w.Deformation(e)
		require.True(t, ok)
		assert.True(t, d.Plastic)
		c, ok := w.Color(e)
		require.True(t, ok)
		assert.Equal(t, uint8(255), c.R)
	})
	assert.Equal(t, b.Len(), seen)

	// The lone particle was not touched.
	first := w.entities[0]
	_, ok := w.Deformation(first)
	assert.False(t, ok)
	assert.Equal(t, r3.Vec{}, w.Velocity(first))
}

func TestHideRandomPortion(t *testing.T) {
	w := newTestWorld(t, r3.Vec{X: 1, Y: 1, Z: 1})
	b := w.PutBall(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 0.1, 1)
	n := b.Len()

	b.HideRandomPortion(1)
	assert.Empty(t, w.Positions(false))
	assert.Len(t, w.Positions(true), n)

	b.HideRandomPortion(0)
	assert.Len(t, w.Positions(false), n)

	w.HideRandomPortion(0.5)
	visible := len(w.Positions(false))
	assert.Greater(t, visible, n/4)
	assert.Less(t, visible, 3*n/4)
}

func TestPutBoundary(t *testing.T) {
	w := newTestWorld(t, r3.Vec{X: 0.2, Y: 0.2, Z: 0.2})
	w.PutFrictionBoundary(0.04, 0.5)

	g := w.Grid()
	mid := g.Dim.X / 2
	floor := g.At(grid.Index{X: mid, Y: 0, Z: mid}).Boundary
	assert.Equal(t, grid.Friction, floor.Kind)
	assert.Equal(t, r3.Vec{Y: 1}, floor.Normal)
	assert.Equal(t, 0.5, floor.Mu)
	assert.Equal(t, grid.None, g.At(grid.Index{X: mid, Y: mid, Z: mid}).Boundary.Kind)

	w.PutStickyBoundary(0.04)
	assert.Equal(t, grid.Sticky, g.At(grid.Index{X: 0, Y: mid, Z: mid}).Boundary.Kind)

	w.PutSlidingBoundary(0.04)
	left := g.At(grid.Index{X: 0, Y: mid, Z: mid}).Boundary
	assert.Equal(t, grid.Sliding, left.Kind)
	assert.Equal(t, r3.Vec{X: 1}, left.Normal)

	w.PutDiminishBoundary(0.04, 0.9)
	assert.Equal(t, grid.VelocityDiminish, g.At(grid.Index{X: mid, Y: mid, Z: g.Dim.Z - 1}).Boundary.Kind)

	w.PutBoundary(func(i grid.Index) (grid.Boundary, bool) {
		return grid.StickyBoundary(), i == grid.Index{X: mid, Y: mid, Z: mid}
	})
	assert.Equal(t, grid.Sticky, g.At(grid.Index{X: mid, Y: mid, Z: mid}).Boundary.Kind)
	assert.Equal(t, grid.VelocityDiminish, g.At(grid.Index{X: 0, Y: mid, Z: mid}).Boundary.Kind)
}

func TestStep_MassConservation(t *testing.T) {
	w := newTestWorld(t, r3.Vec{X: 0.2, Y: 0.4, Z: 0.2})
	w.PutFrictionBoundary(0.04, 1)
	w.PutBall(r3.Vec{X: 0.1, Y: 0.2, Z: 0.1}, 0.05, 10).
		WithVelocity(r3.Vec{X: 0.5, Y: -1}).
		WithDeformation(components.NewElastic(1.4e5, 0.2))

	for i := 0; i < 10; i++ {
		require.NoError(t, w.StepChecked())
		assert.InDelta(t, 10.0, totalMass(w), 1e-9)
		assert.InDelta(t, 10.0, w.GridMass(), 1e-9)
	}
	assert.Equal(t, uint64(10), w.StepCount())
	assert.InDelta(t, 0.01, w.SimTime(), 1e-12)

	s := w.Stats()
	assert.Equal(t, uint64(10), s.Step)
	assert.InDelta(t, 10.0, s.TotalMass, 1e-9)
	assert.Less(t, s.CenterY, 0.2, "the ball moves down")

	perf := w.Perf().Stats()
	assert.Contains(t, perf.PhaseAvg, systems.StageP2G)
}

func TestStep_ParticleSettlesOnStickyFloor(t *testing.T) {
	w := newTestWorld(t, r3.Vec{X: 0.2, Y: 0.4, Z: 0.2})
	w.PutStickyBoundary(0.04)
	e := w.PutParticle(r3.Vec{X: 0.1, Y: 0.3, Z: 0.1}, 1).First()

	for i := 0; i < 600; i++ {
		w.Step()
		p, v := w.Position(e), w.Velocity(e)
		require.GreaterOrEqual(t, p.Y, 0.0, "step %d", i)
		require.Less(t, r3.Norm(v), 5.0, "step %d", i)
		require.False(t, math.IsNaN(p.Y))
	}

	p := w.Position(e)
	assert.Less(t, p.Y, 0.06)
	assert.Less(t, r3.Norm(w.Velocity(e)), 0.5)
	assert.InDelta(t, 0.1, p.X, 1e-9)
	assert.InDelta(t, 0.1, p.Z, 1e-9)
}

func TestStepChecked_NumericalFailure(t *testing.T) {
	w := newTestWorld(t, r3.Vec{X: 0.2, Y: 0.2, Z: 0.2})
	bad := components.NewElastic(1e4, 0.2)
	bad.FPlastic = linalg.Diag(r3.Vec{X: -1, Y: 1, Z: 1})
	w.PutBall(r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}, 0.03, 1).WithDeformation(bad)

	err := w.StepChecked()
	require.Error(t, err)

	var ne *linalg.NumericalError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, systems.StageApplyElasticity, ne.Stage)
	assert.Contains(t, err.Error(), systems.StageApplyElasticity)

	assert.Panics(t, func() { w.Step() })
}
