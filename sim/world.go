// Package sim wires the particle store, the background grid and the stage
// pipeline into a steppable world.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/components"
	"github.com/pthm-cable/mpm/grid"
	"github.com/pthm-cable/mpm/systems"
	"github.com/pthm-cable/mpm/telemetry"
)

// World holds the complete simulation state.
type World struct {
	opts   Options
	logger *slog.Logger
	rng    *rand.Rand

	world *ecs.World

	// Entity mapper for the components every particle has
	particleMapper *ecs.Map4[
		components.Mass,
		components.Volume,
		components.Position,
		components.Velocity,
	]

	// Individual component mappers for lookups
	massMap   *ecs.Map[components.Mass]
	volumeMap *ecs.Map[components.Volume]
	posMap    *ecs.Map[components.Position]
	velMap    *ecs.Map[components.Velocity]
	defMap    *ecs.Map[components.Deformation]
	hiddenMap *ecs.Map[components.Hidden]
	colorMap  *ecs.Map[components.Color]

	// Particles in insertion order; index i is particle i of the snapshot.
	entities []ecs.Entity

	grid      *grid.Grid
	pool      *systems.Pool
	state     *systems.State
	scheduler *Scheduler

	perf    *telemetry.PerfCollector
	metrics *telemetry.Metrics

	simTime     float64
	failedStage string
}

// New creates an empty world.
func New(opts Options) (*World, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	g, err := grid.New(opts.Size, opts.H)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	scheduler, err := NewScheduler(systems.NewSystemRegistry().Pipeline(), logger)
	if err != nil {
		return nil, err
	}

	pool := systems.NewPool(opts.Workers)
	state := systems.NewState(g, pool)
	state.DT = opts.DT
	state.Gravity = opts.Gravity
	state.PICRatio = opts.PICRatio
	state.ApplyHardening = opts.ApplyHardening

	world := ecs.NewWorld()
	w := &World{
		opts:   opts,
		logger: logger,
		rng:    rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		world:  world,
		particleMapper: ecs.NewMap4[
			components.Mass,
			components.Volume,
			components.Position,
			components.Velocity,
		](world),
		massMap:   ecs.NewMap[components.Mass](world),
		volumeMap: ecs.NewMap[components.Volume](world),
		posMap:    ecs.NewMap[components.Position](world),
		velMap:    ecs.NewMap[components.Velocity](world),
		defMap:    ecs.NewMap[components.Deformation](world),
		hiddenMap: ecs.NewMap[components.Hidden](world),
		colorMap:  ecs.NewMap[components.Color](world),
		grid:      g,
		pool:      pool,
		state:     state,
		scheduler: scheduler,
		perf:      telemetry.NewPerfCollector(opts.PerfWindow),
		metrics:   opts.Metrics,
	}

	logger.Debug("world created",
		"size", opts.Size,
		"h", opts.H,
		"dim", g.Dim,
		"nodes", g.Len(),
		"workers", pool.Workers(),
	)
	return w, nil
}

// Close stops the worker pool.
func (w *World) Close() {
	w.pool.Stop()
}

// Step advances the simulation by one timestep. A numerical failure inside
// a stage is logged with the stage name and re-raised.
func (w *World) Step() {
	defer func() {
		if r := recover(); r != nil {
			if sp, ok := r.(*StagePanic); ok {
				w.failedStage = sp.Stage
				r = sp.Value
			}
			w.logger.Error("simulation step failed",
				"step", w.state.Steps,
				"stage", w.failedStage,
				"err", r,
			)
			panic(r)
		}
	}()

	w.perf.StartStep()
	w.perf.StartPhase(telemetry.PhaseGather)
	w.gather()

	w.perf.StartPhase(telemetry.PhaseStages)
	start := time.Now()
	w.scheduler.Run(w.state)

	w.perf.StartPhase(telemetry.PhaseCommit)
	w.commit()
	w.simTime += w.state.DT

	stages := w.scheduler.Durations()
	for id, d := range stages {
		w.perf.RecordPhase(id, d)
	}
	w.perf.EndStep()
	w.metrics.ObserveStep(time.Since(start), stages)
}

// StepChecked is Step with the panic of a failed stage returned as an
// error.
func (w *World) StepChecked() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("step %d, stage %s: %w", w.state.Steps, w.failedStage, e)
			} else {
				err = fmt.Errorf("step %d, stage %s: %v", w.state.Steps, w.failedStage, r)
			}
		}
	}()
	w.Step()
	return nil
}

// gather copies the particle components into the stage buffers.
func (w *World) gather() {
	ps := w.state.Particles
	ps.Resize(len(w.entities))
	for i, e := range w.entities {
		ps.Mass[i] = w.massMap.Get(e).Value
		ps.Volume[i] = w.volumeMap.Get(e).Value
		ps.Pos[i] = w.posMap.Get(e).Vec
		ps.Vel[i] = w.velMap.Get(e).Vec
		ps.HasDef[i] = w.defMap.Has(e)
		if ps.HasDef[i] {
			ps.Def[i] = *w.defMap.Get(e)
		}
	}
}

// commit writes the step results back to the components.
func (w *World) commit() {
	ps := w.state.Particles
	for i, e := range w.entities {
		w.posMap.Get(e).Vec = ps.NewPos[i]
		w.velMap.Get(e).Vec = ps.NewVel[i]
		if ps.HasDef[i] {
			*w.defMap.Get(e) = ps.Def[i]
		}
	}
}

// SetDT changes the timestep for subsequent steps.
func (w *World) SetDT(dt float64) { w.state.DT = dt }

// DT returns the current timestep.
func (w *World) DT() float64 { return w.state.DT }

// StepCount returns the number of completed steps.
func (w *World) StepCount() uint64 { return w.state.Steps }

// SimTime returns the simulated time in seconds.
func (w *World) SimTime() float64 { return w.simTime }

// NumParticles returns the particle count, hidden ones included.
func (w *World) NumParticles() int { return len(w.entities) }

// Dimension returns the grid node count per axis.
func (w *World) Dimension() grid.Index { return w.grid.Dim }

// H returns the grid spacing.
func (w *World) H() float64 { return w.grid.H }

// Size returns the world extent.
func (w *World) Size() r3.Vec { return w.grid.Size }

// Grid exposes the background grid, e.g. for boundary inspection.
func (w *World) Grid() *grid.Grid { return w.grid }

// Perf returns the step timing collector.
func (w *World) Perf() *telemetry.PerfCollector { return w.perf }

// Scheduler returns the stage scheduler.
func (w *World) Scheduler() *Scheduler { return w.scheduler }

// Position returns the position of particle e.
func (w *World) Position(e ecs.Entity) r3.Vec { return w.posMap.Get(e).Vec }

// Velocity returns the velocity of particle e.
func (w *World) Velocity(e ecs.Entity) r3.Vec { return w.velMap.Get(e).Vec }

// Mass returns the mass of particle e.
func (w *World) Mass(e ecs.Entity) float64 { return w.massMap.Get(e).Value }

// Volume returns the rest volume of particle e.
func (w *World) Volume(e ecs.Entity) float64 { return w.volumeMap.Get(e).Value }

// Deformation returns the deformation state of particle e, if it has one.
func (w *World) Deformation(e ecs.Entity) (components.Deformation, bool) {
	if !w.defMap.Has(e) {
		return components.Deformation{}, false
	}
	return *w.defMap.Get(e), true
}

// Color returns the display color of particle e, if it has one.
func (w *World) Color(e ecs.Entity) (components.Color, bool) {
	if !w.colorMap.Has(e) {
		return components.Color{}, false
	}
	return *w.colorMap.Get(e), true
}

// SetColor sets the display color of particle e.
func (w *World) SetColor(e ecs.Entity, c components.Color) {
	if w.colorMap.Has(e) {
		*w.colorMap.Get(e) = c
		return
	}
	w.colorMap.Add(e, &c)
}

// IsHidden reports whether particle e is excluded from output.
func (w *World) IsHidden(e ecs.Entity) bool { return w.hiddenMap.Has(e) }

// SetHidden adds or removes the Hidden marker.
func (w *World) SetHidden(e ecs.Entity, hidden bool) {
	has := w.hiddenMap.Has(e)
	switch {
	case hidden && !has:
		w.hiddenMap.Add(e, &components.Hidden{})
	case !hidden && has:
		w.hiddenMap.Remove(e)
	}
}

// HideRandomPortion hides each particle with probability fraction and
// shows the rest.
func (w *World) HideRandomPortion(fraction float64) {
	for _, e := range w.entities {
		w.SetHidden(e, w.rng.Float64() < fraction)
	}
}

// Positions returns the particle positions in insertion order.
func (w *World) Positions(includeHidden bool) []r3.Vec {
	out := make([]r3.Vec, 0, len(w.entities))
	for _, e := range w.entities {
		if !includeHidden && w.hiddenMap.Has(e) {
			continue
		}
		out = append(out, w.posMap.Get(e).Vec)
	}
	return out
}

// EachParticle calls fn for every particle in insertion order.
func (w *World) EachParticle(fn func(e ecs.Entity)) {
	for _, e := range w.entities {
		fn(e)
	}
}

// Stats aggregates the current particle state, hidden particles included.
func (w *World) Stats() telemetry.StepStats {
	n := len(w.entities)
	mass := make([]float64, n)
	pos := make([]r3.Vec, n)
	vel := make([]r3.Vec, n)
	for i, e := range w.entities {
		mass[i] = w.massMap.Get(e).Value
		pos[i] = w.posMap.Get(e).Vec
		vel[i] = w.velMap.Get(e).Vec
	}
	s := telemetry.ComputeStepStats(w.state.Steps, w.simTime, mass, pos, vel)
	w.metrics.ObserveStats(s)
	return s
}

// GridMass returns the total node mass after the last step's transfer.
func (w *World) GridMass() float64 {
	var m float64
	for i := range w.grid.Nodes {
		m += w.grid.Nodes[i].Mass
	}
	return m
}
