package scene

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/components"
	"github.com/pthm-cable/mpm/config"
	"github.com/pthm-cable/mpm/grid"
	"github.com/pthm-cable/mpm/sim"
)

const scenesDir = "../scenes"

func newWorld(t *testing.T, cfg *config.Config) *sim.World {
	t.Helper()
	opts := sim.OptionsFromConfig(cfg)
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := sim.New(opts)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func TestBuild_Defaults(t *testing.T) {
	cfg := config.Defaults()
	w := newWorld(t, cfg)

	batches, err := Build(w, cfg, ".")
	require.NoError(t, err)
	require.Len(t, batches, 1)

	b := batches[0]
	require.Greater(t, b.Len(), 0)
	e := b.First()
	d, ok := w.Deformation(e)
	require.True(t, ok)
	assert.False(t, d.Plastic)

	mu, lambda := components.Lame(140000, 0.2)
	assert.InDelta(t, mu, d.Mu0, 1e-9)
	assert.InDelta(t, lambda, d.Lambda0, 1e-9)

	floor := w.Grid().At(grid.Index{X: 10, Y: 0, Z: 10}).Boundary
	assert.Equal(t, grid.Friction, floor.Kind)
	assert.Equal(t, 1.0, floor.Mu)
}

func TestBuild_BodyOptions(t *testing.T) {
	cfg, err := config.Parse([]byte(`
boundary:
  kind: none
bodies:
  - name: box
    shape: cube
    min: [0.2, 0.2, 0.2]
    max: [0.4, 0.3, 0.4]
    mass: 4
    velocity: [1, 0, -1]
    colors: [[1, 0, 0]]
  - name: snowball
    shape: ball
    center: [0.6, 0.6, 0.6]
    radius: 0.08
    mass: 2
    material: snow
    hide: 1
`))
	require.NoError(t, err)
	w := newWorld(t, cfg)

	batches, err := Build(w, cfg, ".")
	require.NoError(t, err)
	require.Len(t, batches, 2)

	box, ball := batches[0], batches[1]
	box.Each(func(w *sim.World, e ecs.Entity) {
		assert.Equal(t, r3.Vec{X: 1, Z: -1}, w.Velocity(e))
		_, hasDef := w.Deformation(e)
		assert.False(t, hasDef)
		c, ok := w.Color(e)
		require.True(t, ok)
		assert.Equal(t, components.Color{R: 255}, c)
		assert.False(t, w.IsHidden(e))
	})
	ball.Each(func(w *sim.World, e ecs.Entity) {
		d, ok := w.Deformation(e)
		require.True(t, ok)
		assert.True(t, d.Plastic)
		assert.True(t, w.IsHidden(e))
	})

	assert.Len(t, w.Positions(false), box.Len())
	assert.Equal(t, grid.None, w.Grid().At(grid.Index{}).Boundary.Kind)
}

func TestBuild_OctantPattern(t *testing.T) {
	cfg, err := config.Parse([]byte(`
bodies:
  - shape: ball
    center: [0.5, 0.5, 0.5]
    radius: 0.1
    mass: 1
    colors: [[0, 1, 0], [0, 0, 1]]
    pattern: octant
`))
	require.NoError(t, err)
	w := newWorld(t, cfg)

	batches, err := Build(w, cfg, ".")
	require.NoError(t, err)

	green, blue := components.Color{G: 255}, components.Color{B: 255}
	center := r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	var greens, blues int
	batches[0].Each(func(w *sim.World, e ecs.Entity) {
		c, ok := w.Color(e)
		require.True(t, ok)
		if evenOctant(w.Position(e), center) {
			assert.Equal(t, green, c)
			greens++
		} else {
			assert.Equal(t, blue, c)
			blues++
		}
	})
	assert.Greater(t, greens, 0)
	assert.Greater(t, blues, 0)
}

func TestEvenOctant(t *testing.T) {
	c := r3.Vec{}
	tests := []struct {
		p    r3.Vec
		want bool
	}{
		{r3.Vec{X: 1, Y: 1, Z: 1}, true},
		{r3.Vec{X: 1, Y: -1, Z: -1}, true},
		{r3.Vec{X: -1, Y: 1, Z: -1}, true},
		{r3.Vec{X: -1, Y: -1, Z: 1}, true},
		{r3.Vec{X: -1, Y: 1, Z: 1}, false},
		{r3.Vec{X: 1, Y: -1, Z: 1}, false},
		{r3.Vec{X: 1, Y: 1, Z: -1}, false},
		{r3.Vec{X: -1, Y: -1, Z: -1}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, evenOctant(tt.p, c), "point %v", tt.p)
	}
}

func TestBuild_Mesh(t *testing.T) {
	cfg, err := config.Load(filepath.Join(scenesDir, "beam.yaml"))
	require.NoError(t, err)
	w := newWorld(t, cfg)

	batches, err := Build(w, cfg, scenesDir)
	require.NoError(t, err)
	require.Len(t, batches, 1)

	b := batches[0]
	require.Greater(t, b.Len(), 0)
	var mass float64
	center := r3.Vec{X: 0.5, Y: 0.4, Z: 0.5}
	for _, e := range b.Entities() {
		mass += w.Mass(e)
		// The beam is 0.6 long after scaling.
		assert.Less(t, r3.Norm(r3.Sub(w.Position(e), center)), 0.35)
	}
	assert.InDelta(t, 8.0, mass, 1e-9)
}

func TestBuild_MissingMesh(t *testing.T) {
	cfg, err := config.Parse([]byte(`
bodies:
  - shape: mesh
    mesh: does-not-exist.msh
    mass: 1
`))
	require.NoError(t, err)
	w := newWorld(t, cfg)

	_, err = Build(w, cfg, t.TempDir())
	assert.Error(t, err)
}

func TestBuild_UnknownMaterialModel(t *testing.T) {
	cfg := config.Defaults()
	cfg.Materials["odd"] = config.MaterialConfig{Model: "viscous", YoungsModulus: 1}
	cfg.Bodies[0].Material = "odd"
	w := newWorld(t, cfg)

	_, err := Build(w, cfg, ".")
	assert.ErrorIs(t, err, ErrUnknownMaterial)
}

func TestScenesParse(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join(scenesDir, "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			cfg, err := config.Load(path)
			require.NoError(t, err)
			assert.NotEmpty(t, cfg.Bodies)
		})
	}
}
