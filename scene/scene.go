// Package scene populates a world from the bodies and boundary of a config.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/components"
	"github.com/pthm-cable/mpm/config"
	"github.com/pthm-cable/mpm/grid"
	"github.com/pthm-cable/mpm/msh"
	"github.com/pthm-cable/mpm/region"
	"github.com/pthm-cable/mpm/sim"
)

var (
	ErrUnknownShape    = errors.New("unknown body shape")
	ErrUnknownMaterial = errors.New("unknown material")
	ErrUnknownPattern  = errors.New("unknown color pattern")
)

// Color patterns.
const (
	PatternSolid  = "solid"
	PatternOctant = "octant"
)

// Build applies the boundary and seeds every body of cfg into w. Relative
// mesh paths are resolved against baseDir. It returns one batch per body.
func Build(w *sim.World, cfg *config.Config, baseDir string) ([]*sim.Batch, error) {
	if err := ApplyBoundary(w, cfg.Boundary); err != nil {
		return nil, err
	}

	batches := make([]*sim.Batch, 0, len(cfg.Bodies))
	for i, body := range cfg.Bodies {
		b, err := placeBody(w, cfg, body, baseDir)
		if err != nil {
			return nil, fmt.Errorf("body %d (%s): %w", i, body.Name, err)
		}
		slog.Debug("body placed",
			"body", body.Name,
			"shape", body.Shape,
			"particles", b.Len(),
			"material", body.Material,
		)
		batches = append(batches, b)
	}
	return batches, nil
}

// ApplyBoundary sets the wrapping wall boundary described by bc.
func ApplyBoundary(w *sim.World, bc config.BoundaryConfig) error {
	kind, err := grid.ParseBoundaryKind(bc.Kind)
	if err != nil {
		return err
	}
	switch kind {
	case grid.None:
	case grid.Sticky:
		w.PutStickyBoundary(bc.Thickness)
	case grid.Sliding:
		w.PutSlidingBoundary(bc.Thickness)
	case grid.VelocityDiminish:
		w.PutDiminishBoundary(bc.Thickness, bc.Factor)
	case grid.Friction:
		w.PutFrictionBoundary(bc.Thickness, bc.Mu)
	}
	return nil
}

// Material converts a preset to a fresh deformation state.
func Material(m config.MaterialConfig) (components.Deformation, error) {
	switch m.Model {
	case config.ModelElastic:
		return components.NewElastic(m.YoungsModulus, m.PoissonRatio), nil
	case config.ModelPlastic:
		return components.NewPlastic(m.YoungsModulus, m.PoissonRatio,
			m.CriticalCompression, m.CriticalStretch, m.Hardening), nil
	}
	return components.Deformation{}, fmt.Errorf("%w: model %q", ErrUnknownMaterial, m.Model)
}

func placeBody(w *sim.World, cfg *config.Config, body config.BodyConfig, baseDir string) (*sim.Batch, error) {
	var def components.Deformation
	if body.Material != "" {
		m, ok := cfg.Materials[body.Material]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMaterial, body.Material)
		}
		var err error
		if def, err = Material(m); err != nil {
			return nil, err
		}
	}

	var b *sim.Batch
	switch body.Shape {
	case config.ShapeBall:
		b = w.PutBall(body.Center.Vec(), body.Radius, body.Mass)
	case config.ShapeCube:
		b = w.PutCube(body.Min.Vec(), body.Max.Vec(), body.Mass)
	case config.ShapeMesh:
		path := body.Mesh
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		mesh, err := msh.Load(path)
		if err != nil {
			return nil, err
		}
		scale := body.Scale
		if scale == 0 {
			scale = 1
		}
		transf := region.NewSimilarity(body.Translation.Vec(), body.Rotation.Vec(), scale)
		if b, err = w.PutTetraMesh(mesh, transf, body.Mass); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, body.Shape)
	}

	b.WithVelocity(body.Velocity.Vec())
	if body.Material != "" {
		b.WithDeformation(def)
	}
	if err := paint(b, body); err != nil {
		return nil, err
	}
	if body.Hide > 0 {
		b.HideRandomPortion(body.Hide)
	}
	return b, nil
}

// paint colors the batch. The octant pattern alternates the two colors
// across the eight octants around the body center, so rolling is visible.
func paint(b *sim.Batch, body config.BodyConfig) error {
	if len(body.Colors) == 0 {
		return nil
	}
	first := toColor(body.Colors[0])
	second := first
	if len(body.Colors) > 1 {
		second = toColor(body.Colors[1])
	}

	switch body.Pattern {
	case "", PatternSolid:
		b.WithColor(first)
	case PatternOctant:
		center := bodyCenter(body)
		b.Each(func(w *sim.World, e ecs.Entity) {
			if evenOctant(w.Position(e), center) {
				w.SetColor(e, first)
			} else {
				w.SetColor(e, second)
			}
		})
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPattern, body.Pattern)
	}
	return nil
}

// evenOctant reports whether an even number of p's coordinates lie below c.
func evenOctant(p, c r3.Vec) bool {
	below := 0
	for _, lt := range [3]bool{p.X < c.X, p.Y < c.Y, p.Z < c.Z} {
		if lt {
			below++
		}
	}
	return below%2 == 0
}

func bodyCenter(body config.BodyConfig) r3.Vec {
	switch body.Shape {
	case config.ShapeCube:
		return r3.Scale(0.5, r3.Add(body.Min.Vec(), body.Max.Vec()))
	case config.ShapeMesh:
		return body.Translation.Vec()
	}
	return body.Center.Vec()
}

func toColor(c config.Vec3) components.Color {
	ch := func(v float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return components.Color{R: ch(c[0]), G: ch(c[1]), B: ch(c[2])}
}
