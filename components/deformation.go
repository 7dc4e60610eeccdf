package components

import (
	"math"

	"github.com/pthm-cable/mpm/linalg"
)

// Deformation holds the elastoplastic state of a particle.
//
// Pure elastic bodies have Plastic == false and keep FPlastic at identity.
// Plastic bodies clamp the singular values of FElastic to
// [1-ThetaC, 1+ThetaS] every step and move the excess into FPlastic.
type Deformation struct {
	FElastic linalg.Mat3
	FPlastic linalg.Mat3

	Mu0     float64 // initial shear modulus
	Lambda0 float64 // initial first Lamé parameter

	ThetaC    float64 // critical compression
	ThetaS    float64 // critical stretch
	Hardening float64 // ξ in exp(ξ(1-Jp))

	Plastic bool
}

// Lame converts Young's modulus and Poisson's ratio to (μ, λ).
func Lame(youngs, poisson float64) (mu, lambda float64) {
	mu = youngs / (2 * (1 + poisson))
	lambda = youngs * poisson / ((1 + poisson) * (1 - 2*poisson))
	return mu, lambda
}

// NewElastic returns an undeformed fixed-corotated elastic state.
func NewElastic(youngs, poisson float64) Deformation {
	mu, lambda := Lame(youngs, poisson)
	return Deformation{
		FElastic: linalg.Identity(),
		FPlastic: linalg.Identity(),
		Mu0:      mu,
		Lambda0:  lambda,
	}
}

// NewPlastic returns an undeformed elastoplastic state.
func NewPlastic(youngs, poisson, thetaC, thetaS, hardening float64) Deformation {
	d := NewElastic(youngs, poisson)
	d.ThetaC = thetaC
	d.ThetaS = thetaS
	d.Hardening = hardening
	d.Plastic = true
	return d
}

// NewSnow returns the snow material of Stomakhin et al. 2013.
func NewSnow() Deformation {
	return NewPlastic(1.4e5, 0.2, 2.5e-2, 7.5e-3, 10)
}

// LameParameters returns the current (μ, λ). With hardening enabled both
// are scaled by exp(ξ(1-det FPlastic)).
func (d *Deformation) LameParameters(applyHardening bool) (mu, lambda float64) {
	if !applyHardening || !d.Plastic {
		return d.Mu0, d.Lambda0
	}
	h := math.Exp(d.Hardening * (1 - d.FPlastic.Det()))
	return d.Mu0 * h, d.Lambda0 * h
}
