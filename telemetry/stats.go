package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// StepStats is a snapshot of the particle state after a step.
type StepStats struct {
	Step      uint64  `csv:"step"`
	SimTime   float64 `csv:"sim_time"`
	Particles int     `csv:"particles"`

	// Conserved quantities
	TotalMass     float64 `csv:"total_mass"`
	KineticEnergy float64 `csv:"kinetic_energy"`
	MomentumX     float64 `csv:"momentum_x"`
	MomentumY     float64 `csv:"momentum_y"`
	MomentumZ     float64 `csv:"momentum_z"`

	// Center of mass and vertical extent
	CenterX float64 `csv:"center_x"`
	CenterY float64 `csv:"center_y"`
	CenterZ float64 `csv:"center_z"`
	MinY    float64 `csv:"min_y"`
	MaxY    float64 `csv:"max_y"`

	// Speed distribution
	SpeedMean float64 `csv:"speed_mean"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`
	SpeedMax  float64 `csv:"speed_max"`
}

// ComputeStepStats aggregates per-particle mass, position and velocity.
// The slices must have equal length.
func ComputeStepStats(step uint64, simTime float64, mass []float64, pos, vel []r3.Vec) StepStats {
	s := StepStats{Step: step, SimTime: simTime, Particles: len(mass)}
	n := len(mass)
	if n == 0 {
		return s
	}

	xs, ys, zs := make([]float64, n), make([]float64, n), make([]float64, n)
	vx, vy, vz := make([]float64, n), make([]float64, n), make([]float64, n)
	speedSq := make([]float64, n)
	speeds := make([]float64, n)
	for i := range mass {
		xs[i], ys[i], zs[i] = pos[i].X, pos[i].Y, pos[i].Z
		vx[i], vy[i], vz[i] = vel[i].X, vel[i].Y, vel[i].Z
		speedSq[i] = r3.Norm2(vel[i])
		speeds[i] = r3.Norm(vel[i])
	}

	s.TotalMass = floats.Sum(mass)
	s.KineticEnergy = 0.5 * floats.Dot(mass, speedSq)
	s.MomentumX = floats.Dot(mass, vx)
	s.MomentumY = floats.Dot(mass, vy)
	s.MomentumZ = floats.Dot(mass, vz)

	if s.TotalMass > 0 {
		s.CenterX = stat.Mean(xs, mass)
		s.CenterY = stat.Mean(ys, mass)
		s.CenterZ = stat.Mean(zs, mass)
	}
	s.MinY = floats.Min(ys)
	s.MaxY = floats.Max(ys)

	slices.Sort(speeds)
	s.SpeedMean = stat.Mean(speeds, nil)
	s.SpeedP50 = stat.Quantile(0.5, stat.Empirical, speeds, nil)
	s.SpeedP90 = stat.Quantile(0.9, stat.Empirical, speeds, nil)
	s.SpeedMax = speeds[n-1]
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s StepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("step", s.Step),
		slog.Float64("sim_time", s.SimTime),
		slog.Int("particles", s.Particles),
		slog.Float64("total_mass", s.TotalMass),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("center_y", s.CenterY),
		slog.Float64("min_y", s.MinY),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_max", s.SpeedMax),
	)
}

// LogStats logs the step stats using slog.
func (s StepStats) LogStats() {
	slog.Info("stats", "stats", s)
}
