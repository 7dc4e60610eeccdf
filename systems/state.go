// Package systems implements the MPM pipeline stages.
//
// Stages operate on a State: the background grid plus a structure-of-arrays
// snapshot of the particles taken from the ECS before the step. Results
// that other stages still read during the step (positions, velocities) are
// written to separate output buffers and committed by the caller.
package systems

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/components"
	"github.com/pthm-cable/mpm/grid"
	"github.com/pthm-cable/mpm/linalg"
)

// Particles is the per-step particle snapshot.
type Particles struct {
	Mass   []float64
	Volume []float64 // 0 for point masses
	Pos    []r3.Vec
	Vel    []r3.Vec

	// Deformation is only meaningful where HasDef is set.
	Def    []components.Deformation
	HasDef []bool

	// Written by g2p, committed after the step.
	NewPos []r3.Vec
	NewVel []r3.Vec

	// Volume·P·FEᵀ per particle, computed before the force scatter.
	stress []linalg.Mat3
}

// Resize sets every buffer to length n, reusing capacity.
func (p *Particles) Resize(n int) {
	p.Mass = resize(p.Mass, n)
	p.Volume = resize(p.Volume, n)
	p.Pos = resize(p.Pos, n)
	p.Vel = resize(p.Vel, n)
	p.Def = resize(p.Def, n)
	p.HasDef = resize(p.HasDef, n)
	p.NewPos = resize(p.NewPos, n)
	p.NewVel = resize(p.NewVel, n)
	p.stress = resize(p.stress, n)
}

// Len returns the particle count.
func (p *Particles) Len() int { return len(p.Mass) }

func resize[T any](s []T, n int) []T {
	return slices.Grow(s[:0], n)[:n]
}

// State is everything a stage reads or writes.
type State struct {
	Grid      *grid.Grid
	Particles *Particles
	Plan      *ScatterPlan
	Pool      *Pool

	DT             float64
	Gravity        r3.Vec
	PICRatio       float64 // α in α·v_pic + (1-α)·v_flip
	ApplyHardening bool

	Steps uint64
}

// NewState allocates an empty particle snapshot and scatter plan around g.
func NewState(g *grid.Grid, pool *Pool) *State {
	return &State{
		Grid:      g,
		Particles: &Particles{},
		Plan:      &ScatterPlan{},
		Pool:      pool,
		DT:        1e-3,
		Gravity:   r3.Vec{Y: -9.8},
		PICRatio:  0.05,
	}
}

// forNodes runs fn over every grid node in parallel.
func (s *State) forNodes(fn func(n *grid.Node)) {
	nodes := s.Grid.Nodes
	s.Pool.Run(len(nodes), func(start, end int) {
		for i := start; i < end; i++ {
			fn(&nodes[i])
		}
	})
}

// forParticles runs fn over every particle index in parallel.
func (s *State) forParticles(fn func(i int, st *grid.Stencil)) {
	s.Pool.Run(s.Particles.Len(), func(start, end int) {
		var st grid.Stencil
		for i := start; i < end; i++ {
			fn(i, &st)
		}
	})
}
