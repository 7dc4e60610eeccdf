// Package components defines ECS components for the particle store.
package components

import "gonum.org/v1/gonum/spatial/r3"

// Mass is the particle mass in kg.
type Mass struct {
	Value float64
}

// Volume is the particle rest volume. Particles without it are point masses
// and take no part in the elastic force computation.
type Volume struct {
	Value float64
}

// Position is the particle position in world units.
type Position struct {
	r3.Vec
}

// Velocity is the particle velocity.
type Velocity struct {
	r3.Vec
}

// Hidden marks a particle that is simulated but excluded from output.
type Hidden struct{}

// Color is a display color used by the viewer only.
type Color struct {
	R, G, B uint8
}
