package sim

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/components"
)

// Batch is a handle on particles added by one seeding call. It refers to a
// contiguous range of the world's particle list.
type Batch struct {
	w          *World
	start, end int
}

// Len returns the number of particles in the batch.
func (b *Batch) Len() int { return b.end - b.start }

// Entities returns the particles of the batch.
func (b *Batch) Entities() []ecs.Entity {
	return b.w.entities[b.start:b.end:b.end]
}

// First returns the first particle. It panics on an empty batch.
func (b *Batch) First() ecs.Entity {
	if b.Len() == 0 {
		panic("sim: First on empty batch")
	}
	return b.w.entities[b.start]
}

// Each calls fn for every particle of the batch.
func (b *Batch) Each(fn func(w *World, e ecs.Entity)) *Batch {
	for _, e := range b.Entities() {
		fn(b.w, e)
	}
	return b
}

// WithVelocity sets the velocity of every particle.
func (b *Batch) WithVelocity(v r3.Vec) *Batch {
	for _, e := range b.Entities() {
		b.w.velMap.Get(e).Vec = v
	}
	return b
}

// WithVolume sets the rest volume of every particle.
func (b *Batch) WithVolume(v float64) *Batch {
	for _, e := range b.Entities() {
		b.w.volumeMap.Get(e).Value = v
	}
	return b
}

// WithMass sets the mass of every particle.
func (b *Batch) WithMass(m float64) *Batch {
	for _, e := range b.Entities() {
		b.w.massMap.Get(e).Value = m
	}
	return b
}

// WithDeformation gives every particle its own copy of d.
func (b *Batch) WithDeformation(d components.Deformation) *Batch {
	for _, e := range b.Entities() {
		if b.w.defMap.Has(e) {
			*b.w.defMap.Get(e) = d
			continue
		}
		c := d
		b.w.defMap.Add(e, &c)
	}
	return b
}

// WithColor sets the display color of every particle.
func (b *Batch) WithColor(c components.Color) *Batch {
	for _, e := range b.Entities() {
		b.w.SetColor(e, c)
	}
	return b
}

// HideRandomPortion hides each particle of the batch with probability
// fraction and shows the rest.
func (b *Batch) HideRandomPortion(fraction float64) *Batch {
	for _, e := range b.Entities() {
		b.w.SetHidden(e, b.w.rng.Float64() < fraction)
	}
	return b
}
