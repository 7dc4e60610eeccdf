package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestComputeStepStats(t *testing.T) {
	mass := []float64{1, 3}
	pos := []r3.Vec{{X: 0, Y: 1}, {X: 4, Y: 2}}
	vel := []r3.Vec{{X: 2}, {Y: -1}}

	s := ComputeStepStats(7, 0.007, mass, pos, vel)

	assert.Equal(t, uint64(7), s.Step)
	assert.Equal(t, 2, s.Particles)
	assert.InDelta(t, 4.0, s.TotalMass, 1e-12)
	assert.InDelta(t, 0.5*(1*4+3*1), s.KineticEnergy, 1e-12)
	assert.InDelta(t, 2.0, s.MomentumX, 1e-12)
	assert.InDelta(t, -3.0, s.MomentumY, 1e-12)
	assert.InDelta(t, 3.0, s.CenterX, 1e-12)
	assert.InDelta(t, 1.75, s.CenterY, 1e-12)
	assert.Equal(t, 1.0, s.MinY)
	assert.Equal(t, 2.0, s.MaxY)
	assert.InDelta(t, 1.5, s.SpeedMean, 1e-12)
	assert.Equal(t, 2.0, s.SpeedMax)
}

func TestComputeStepStats_Quantiles(t *testing.T) {
	n := 10
	mass := make([]float64, n)
	pos := make([]r3.Vec, n)
	vel := make([]r3.Vec, n)
	for i := range mass {
		mass[i] = 1
		vel[i] = r3.Vec{Z: float64(n - i)} // 10 down to 1
	}

	s := ComputeStepStats(0, 0, mass, pos, vel)
	assert.Equal(t, 5.0, s.SpeedP50)
	assert.Equal(t, 9.0, s.SpeedP90)
	assert.Equal(t, 10.0, s.SpeedMax)
	assert.InDelta(t, 5.5, s.SpeedMean, 1e-12)
}

func TestComputeStepStats_Empty(t *testing.T) {
	s := ComputeStepStats(3, 1, nil, nil, nil)
	assert.Equal(t, StepStats{Step: 3, SimTime: 1}, s)
}
