package sim

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/components"
	"github.com/pthm-cable/mpm/msh"
	"github.com/pthm-cable/mpm/poisson"
	"github.com/pthm-cable/mpm/region"
)

// addParticle creates one particle entity and records it.
func (w *World) addParticle(pos, vel r3.Vec, mass, volume float64) ecs.Entity {
	m := components.Mass{Value: mass}
	v := components.Volume{Value: volume}
	p := components.Position{Vec: pos}
	u := components.Velocity{Vec: vel}
	e := w.particleMapper.NewEntity(&m, &v, &p, &u)
	w.entities = append(w.entities, e)
	return e
}

// PutParticle adds a point mass at rest.
func (w *World) PutParticle(pos r3.Vec, mass float64) *Batch {
	start := len(w.entities)
	w.addParticle(pos, r3.Vec{}, mass, 0)
	return &Batch{w: w, start: start, end: len(w.entities)}
}

// PutRegion fills reg, placed by transf, with Poisson-disk samples and
// splits mass evenly among them. Each particle gets the volume radius³
// where radius = h / particle density.
func (w *World) PutRegion(reg region.Region, transf region.Similarity, mass float64) *Batch {
	radius := w.grid.H / w.opts.ParticleDensity
	bb := reg.Bound().Transform(transf)

	start := len(w.entities)
	volume := math.Pow(radius, 3)
	for _, s := range poisson.New(bb.Size(), radius, w.rng.Uint64()).Generate() {
		sample := r3.Add(s, bb.Min)
		if reg.Contains(transf.Inverse(sample)) {
			w.addParticle(sample, r3.Vec{}, 0, volume)
		}
	}
	b := &Batch{w: w, start: start, end: len(w.entities)}

	if n := b.Len(); n > 0 {
		b.WithMass(mass / float64(n))
	}
	w.logger.Debug("region seeded", "particles", b.Len(), "mass", mass, "radius", radius)
	return b
}

// PutBall seeds a sphere.
func (w *World) PutBall(center r3.Vec, radius, mass float64) *Batch {
	return w.PutRegion(region.Sphere{Radius: radius}, region.Translation(center), mass)
}

// PutCube seeds the axis-aligned box [min, max].
func (w *World) PutCube(min, max r3.Vec, mass float64) *Batch {
	size := r3.Sub(max, min)
	center := r3.Add(min, r3.Scale(0.5, size))
	return w.PutRegion(region.Cube{Size: size}, region.Translation(center), mass)
}

// PutTetraMesh seeds the volume of a tetrahedral mesh.
func (w *World) PutTetraMesh(mesh *msh.TetrahedronMesh, transf region.Similarity, mass float64) (*Batch, error) {
	reg, err := region.NewTetMesh(mesh.Nodes, mesh.Tetrahedra)
	if err != nil {
		return nil, err
	}
	return w.PutRegion(reg, transf, mass), nil
}
